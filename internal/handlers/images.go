package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/splitledger/backend/internal/storage"
	"github.com/splitledger/backend/pkg/logger"
)

const imageURLExpiry = time.Hour

// ImageUploader stores profile and group images in the object store and
// resolves their keys into short-lived URLs.
type ImageUploader struct {
	Store storage.ObjectStore
}

type imageUploadError struct {
	status  int
	message string
}

func (e *imageUploadError) Error() string { return e.message }

// Upload reads the multipart "image" field and stores it under prefix.
func (u *ImageUploader) Upload(c *fiber.Ctx, prefix string, ownerID uint64) (string, error) {
	if u == nil || u.Store == nil {
		return "", &imageUploadError{fiber.StatusServiceUnavailable, "image storage is not configured"}
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return "", &imageUploadError{fiber.StatusBadRequest, "image is required"}
	}
	if fileHeader.Size > maxImageSize {
		return "", &imageUploadError{fiber.StatusRequestEntityTooLarge, "image exceeds 5MB"}
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if !isImageContentType(contentType) {
		return "", &imageUploadError{fiber.StatusBadRequest, "file must be an image"}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	key := imageObjectKey(prefix, ownerID, fileHeader.Filename)
	if err := u.Store.Upload(c.UserContext(), key, file, fileHeader.Size, contentType); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return key, nil
}

// Replace removes a previous image after a successful update. Failures are
// logged and otherwise ignored.
func (u *ImageUploader) Replace(ctx context.Context, previous *string) {
	if u == nil || u.Store == nil || previous == nil || *previous == "" {
		return
	}
	if err := u.Store.Delete(ctx, *previous); err != nil {
		logger.Warn("image_cleanup_failed", map[string]interface{}{"object_name": *previous, "error": err.Error()})
	}
}

func (u *ImageUploader) URL(ctx context.Context, key *string) string {
	if u == nil || u.Store == nil || key == nil || *key == "" {
		return ""
	}
	url, err := u.Store.PresignedGetURL(ctx, *key, imageURLExpiry)
	if err != nil {
		logger.Warn("image_presign_failed", map[string]interface{}{"object_name": *key, "error": err.Error()})
		return ""
	}
	return url
}
