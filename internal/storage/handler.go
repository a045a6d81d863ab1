package storage

import (
	"bytes"
	"errors"
	"io"
	"log"
	"net/http"
	"path"
	"regexp"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/apperr"
)

// MaxUploadSize caps a single photo.
const MaxUploadSize = 5 << 20

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var keyPattern = regexp.MustCompile(`^[0-9a-f-]{36}\.(jpg|png|webp)$`)

type Handler struct {
	store ObjectStorage
}

func NewHandler(store ObjectStorage) *Handler {
	return &Handler{store: store}
}

// Upload handles POST /uploads with a multipart "photo" field.
func (h *Handler) Upload(c echo.Context) error {
	p, err := account.PrincipalFrom(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return apperr.BadRequest("photo is required")
	}
	if fh.Size > MaxUploadSize {
		return apperr.BadRequest("photo too large (max 5 MiB)")
	}

	f, err := fh.Open()
	if err != nil {
		return apperr.BadRequest("invalid upload")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxUploadSize+1))
	if err != nil {
		return apperr.BadRequest("invalid upload")
	}
	if len(data) > MaxUploadSize {
		return apperr.BadRequest("photo too large (max 5 MiB)")
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageTypes[contentType]
	if !ok {
		return apperr.BadRequest("photo must be a jpeg, png or webp image")
	}

	key := uuid.NewString() + ext
	if err := h.store.Put(c.Request().Context(), key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return apperr.Internal("failed to store photo", err)
	}
	log.Printf("[storage] %s uploaded %s (%d bytes)", p.ID, key, len(data))
	return c.JSON(http.StatusCreated, echo.Map{"photoUrl": "/images/" + key})
}

// Serve handles GET /images/:key.
func (h *Handler) Serve(c echo.Context) error {
	key := c.Param("key")
	if !keyPattern.MatchString(key) {
		return apperr.NotFound("image not found")
	}
	rc, err := h.store.Get(c.Request().Context(), key)
	if errors.Is(err, ErrNotFound) {
		return apperr.NotFound("image not found")
	}
	if err != nil {
		return apperr.Internal("failed to read image", err)
	}
	defer rc.Close()

	contentType := "application/octet-stream"
	for ct, ext := range imageTypes {
		if path.Ext(key) == ext {
			contentType = ct
		}
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Stream(http.StatusOK, contentType, rc)
}
