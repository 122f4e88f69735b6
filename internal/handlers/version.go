package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/splitledger/backend/pkg/utils"
)

var Version = "dev"

func GetVersion(c *fiber.Ctx) error {
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"version":    Version,
		"apiVersion": "v1",
	})
}
