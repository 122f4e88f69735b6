package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/splitledger/backend/internal/middleware"
	"github.com/splitledger/backend/internal/models"
	"github.com/splitledger/backend/pkg/logger"
	"github.com/splitledger/backend/pkg/utils"
	"gorm.io/gorm"
)

const userSearchLimit = 10

type UsersHandler struct {
	DB *gorm.DB
}

func NewUsersHandler(db *gorm.DB) *UsersHandler {
	return &UsersHandler{DB: db}
}

// Search matches name or email and never returns the caller.
func (h *UsersHandler) Search(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	keyword := strings.TrimSpace(c.Query("keyword"))
	if keyword == "" {
		return utils.Success(c, fiber.StatusOK, []models.User{})
	}

	pattern := "%" + strings.ToLower(keyword) + "%"
	var users []models.User
	if err := h.DB.WithContext(c.UserContext()).
		Where("id <> ?", currentUser.ID).
		Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern).
		Order("name ASC").
		Limit(userSearchLimit).
		Find(&users).Error; err != nil {
		logger.ErrorWithUser(currentUser.ID, "user_search_failed", err, nil)
		return utils.Error(c, fiber.StatusInternalServerError, "failed searching users")
	}

	logger.InfoWithUser(currentUser.ID, "user_search", map[string]interface{}{
		"keyword": keyword,
		"results": len(users),
	})
	return utils.Success(c, fiber.StatusOK, users)
}
