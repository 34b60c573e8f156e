package handlers

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/microcred/microcred-api/internal/auth"
	"github.com/microcred/microcred-api/internal/catalog"
	"github.com/microcred/microcred-api/internal/models"
	"github.com/microcred/microcred-api/internal/storage"
	"gorm.io/gorm"
)

// IconHandler manages the shared icon library.
type IconHandler struct {
	db          *gorm.DB
	store       *storage.IconStore
	authHandler *auth.AuthHandler
	iconBase    string
}

func NewIconHandler(db *gorm.DB, store *storage.IconStore, authHandler *auth.AuthHandler, iconBase string) *IconHandler {
	return &IconHandler{db: db, store: store, authHandler: authHandler, iconBase: iconBase}
}

type IconResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	URL      string `json:"url"`
}

func (h *IconHandler) iconResponse(i *models.Icon) IconResponse {
	return IconResponse{
		ID:       i.ID,
		Name:     i.Name,
		Category: i.Category,
		URL:      strings.TrimRight(h.iconBase, "/") + "/" + i.Filename,
	}
}

type ListIconsRequest struct {
	auth.AuthInput
	Category string `query:"category" doc:"Filter by category" required:"false"`
	Query    string `query:"q" doc:"Search by name" required:"false"`
}

type ListIconsOutput struct {
	Body struct {
		Icons []IconResponse `json:"icons"`
	}
}

func (h *IconHandler) HandleList(ctx context.Context, input *ListIconsRequest) (*ListIconsOutput, error) {
	if _, err := h.authHandler.Authorize(ctx, input.AuthInput); err != nil {
		return nil, err
	}

	q := h.db.WithContext(ctx).Model(&models.Icon{})
	if input.Category != "" {
		q = q.Where("category = ?", input.Category)
	}
	if s := strings.TrimSpace(input.Query); s != "" {
		q = q.Where("name LIKE ?", "%"+s+"%")
	}

	var icons []models.Icon
	if err := q.Order("category asc, name asc").Find(&icons).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list icons")
	}

	res := &ListIconsOutput{}
	for i := range icons {
		res.Body.Icons = append(res.Body.Icons, h.iconResponse(&icons[i]))
	}
	return res, nil
}

type UploadIconLibraryRequest struct {
	auth.AuthInput
	Name     string `query:"name" doc:"Human-friendly unique key" required:"true"`
	Category string `query:"category" doc:"Library category" required:"true"`
	RawBody  []byte `contentType:"application/octet-stream" doc:"Image payload"`
}

type UploadIconLibraryOutput struct {
	Body IconResponse
}

func (h *IconHandler) HandleUpload(ctx context.Context, input *UploadIconLibraryRequest) (*UploadIconLibraryOutput, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleAdmin, models.RoleIssuer); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	category := strings.TrimSpace(input.Category)
	if name == "" || category == "" {
		return nil, huma.Error400BadRequest("Name and category are required")
	}

	filename, err := h.store.Save(bytes.NewReader(input.RawBody), catalog.Slugify(category)+"-"+catalog.Slugify(name))
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedFormat) {
			return nil, huma.Error415UnsupportedMediaType("Could not process image")
		}
		return nil, huma.Error500InternalServerError("Failed to store image")
	}

	icon := models.Icon{Name: name, Category: category, Filename: filename}
	if err := h.db.WithContext(ctx).Create(&icon).Error; err != nil {
		h.store.Delete(filename)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, huma.Error409Conflict("An icon with that name already exists")
		}
		return nil, huma.Error500InternalServerError("Failed to create icon")
	}

	return &UploadIconLibraryOutput{Body: h.iconResponse(&icon)}, nil
}

type DeleteIconRequest struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *IconHandler) HandleDelete(ctx context.Context, input *DeleteIconRequest) (*struct{}, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleAdmin); err != nil {
		return nil, err
	}

	var icon models.Icon
	if err := h.db.WithContext(ctx).First(&icon, input.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("Icon not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load icon")
	}

	if err := h.db.WithContext(ctx).Delete(&icon).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to delete icon")
	}
	h.store.Delete(icon.Filename)
	return nil, nil
}
