package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/splitledger/backend/internal/models"
	"github.com/splitledger/backend/pkg/utils"
	"gorm.io/gorm"
)

type CurrenciesHandler struct {
	DB *gorm.DB
}

func NewCurrenciesHandler(db *gorm.DB) *CurrenciesHandler {
	return &CurrenciesHandler{DB: db}
}

func (h *CurrenciesHandler) List(c *fiber.Ctx) error {
	var currencies []models.Currency
	if err := h.DB.WithContext(c.UserContext()).Order("id ASC").Find(&currencies).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing currencies")
	}
	return utils.Success(c, fiber.StatusOK, currencies)
}
