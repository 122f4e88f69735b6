package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/splitledger/backend/internal/services"
	"github.com/splitledger/backend/pkg/logger"
	"github.com/splitledger/backend/pkg/utils"
)

const maxImageSize = 5 * 1024 * 1024

var errInvalidID = errors.New("invalid id")

func parseID(value string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil || id == 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// ledgerError writes the envelope for an error returned by the services layer.
func ledgerError(c *fiber.Ctx, userID uint64, action string, err error) error {
	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrNothingToSettle),
		errors.Is(err, services.ErrBalancesNotSettled),
		errors.Is(err, services.ErrNoSuchInvite),
		errors.Is(err, services.ErrInvalidMember),
		errors.Is(err, services.ErrInvalidGroup):
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotAMember):
		return utils.Error(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrDuplicateName):
		return utils.Error(c, fiber.StatusConflict, err.Error())
	default:
		logger.ErrorWithUser(userID, action, err, map[string]interface{}{
			"path":       c.Path(),
			"request_id": logger.GetRequestID(c),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "internal error")
	}
}

// imageObjectKey builds a unique object name under prefix, keeping the
// uploaded file's extension.
func imageObjectKey(prefix string, ownerID uint64, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%d/%s%s", prefix, ownerID, uuid.New().String(), ext)
}

func isImageContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}
