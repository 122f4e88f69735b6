package handlers

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/splitledger/backend/internal/middleware"
	"github.com/splitledger/backend/internal/models"
	"github.com/splitledger/backend/pkg/logger"
	"github.com/splitledger/backend/pkg/utils"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB     *gorm.DB
	Images *ImageUploader
}

func NewAuthHandler(db *gorm.DB, images *ImageUploader) *AuthHandler {
	return &AuthHandler{DB: db, Images: images}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileResponse struct {
	models.User
	ImageURL string `json:"imageUrl,omitempty"`
}

func (h *AuthHandler) profile(c *fiber.Ctx, user *models.User) profileResponse {
	return profileResponse{User: *user, ImageURL: h.Images.URL(c.UserContext(), user.Image)}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid email")
	}
	if req.Name == "" || utf8.RuneCountInString(req.Name) > 64 {
		return utils.Error(c, fiber.StatusBadRequest, "name must be 1-64 characters")
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordTooShort) {
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		CurrencyID:   models.DefaultCurrencyID,
		Timezone:     models.DefaultTimezone,
		Language:     models.DefaultLanguage,
	}
	if err := h.DB.WithContext(c.UserContext()).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Error(c, fiber.StatusConflict, "email already registered")
		}
		logger.Error("user_register_failed", err, map[string]interface{}{"email": user.Email})
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	logger.InfoWithUser(user.ID, "user_registered", map[string]interface{}{
		"email": user.Email,
		"ip":    c.IP(),
	})

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}
	return utils.Success(c, fiber.StatusCreated, fiber.Map{"token": token, "user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email and password are required")
	}

	var user models.User
	if err := h.DB.WithContext(c.UserContext()).First(&user, "email = ?", req.Email).Error; err != nil {
		logger.Warn("login_failed_user_not_found", map[string]interface{}{
			"email": req.Email,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		logger.WarnWithUser(user.ID, "login_failed_invalid_password", map[string]interface{}{
			"ip": c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	logger.InfoWithUser(user.ID, "user_login", map[string]interface{}{"ip": c.IP()})

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"token": token, "user": user})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var user models.User
	if err := h.DB.WithContext(c.UserContext()).Preload("Currency").First(&user, currentUser.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading profile")
	}
	return utils.Success(c, fiber.StatusOK, h.profile(c, &user))
}

type updateMeRequest struct {
	Name       *string `json:"name"`
	CurrencyID *uint64 `json:"currencyId"`
	Timezone   *string `json:"timezone"`
	Language   *string `json:"language"`
	Number     *string `json:"number"`
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	db := h.DB.WithContext(c.UserContext())
	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || utf8.RuneCountInString(name) > 64 {
			return utils.Error(c, fiber.StatusBadRequest, "name must be 1-64 characters")
		}
		updates["name"] = name
	}
	if req.CurrencyID != nil {
		var count int64
		if err := db.Model(&models.Currency{}).Where("id = ?", *req.CurrencyID).Count(&count).Error; err != nil {
			return utils.Error(c, fiber.StatusInternalServerError, "failed checking currency")
		}
		if count == 0 {
			return utils.Error(c, fiber.StatusBadRequest, "unknown currency")
		}
		updates["currency_id"] = *req.CurrencyID
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil || *req.Timezone == "" {
			return utils.Error(c, fiber.StatusBadRequest, "invalid timezone")
		}
		updates["timezone"] = *req.Timezone
	}
	if req.Language != nil {
		lang := strings.TrimSpace(*req.Language)
		if lang == "" || utf8.RuneCountInString(lang) > 64 {
			return utils.Error(c, fiber.StatusBadRequest, "invalid language")
		}
		updates["language"] = lang
	}
	if req.Number != nil {
		number := strings.TrimSpace(*req.Number)
		if len(number) > 10 {
			return utils.Error(c, fiber.StatusBadRequest, "number must be at most 10 characters")
		}
		updates["number"] = number
	}

	if len(updates) > 0 {
		if err := db.Model(&models.User{}).Where("id = ?", currentUser.ID).Updates(updates).Error; err != nil {
			logger.ErrorWithUser(currentUser.ID, "profile_update_failed", err, nil)
			return utils.Error(c, fiber.StatusInternalServerError, "failed updating profile")
		}
		logger.InfoWithUser(currentUser.ID, "profile_updated", map[string]interface{}{"fields": len(updates)})
	}

	var user models.User
	if err := db.Preload("Currency").First(&user, currentUser.ID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading profile")
	}
	return utils.Success(c, fiber.StatusOK, h.profile(c, &user))
}

func (h *AuthHandler) UploadImage(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	key, err := h.Images.Upload(c, "users", currentUser.ID)
	if err != nil {
		return imageError(c, currentUser.ID, err)
	}

	previous := currentUser.Image
	if err := h.DB.WithContext(c.UserContext()).Model(&models.User{}).Where("id = ?", currentUser.ID).Update("image", key).Error; err != nil {
		h.Images.Replace(c.UserContext(), &key)
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating profile image")
	}
	h.Images.Replace(c.UserContext(), previous)

	currentUser.Image = &key
	return utils.Success(c, fiber.StatusOK, h.profile(c, currentUser))
}

func imageError(c *fiber.Ctx, userID uint64, err error) error {
	var uploadErr *imageUploadError
	if errors.As(err, &uploadErr) {
		return utils.Error(c, uploadErr.status, uploadErr.message)
	}
	logger.ErrorWithUser(userID, "image_upload_failed", err, map[string]interface{}{"path": c.Path()})
	return utils.Error(c, fiber.StatusInternalServerError, "failed uploading image")
}
