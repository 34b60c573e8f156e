package handlers

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/microcred/microcred-api/internal/auth"
	"github.com/microcred/microcred-api/internal/catalog"
	"github.com/microcred/microcred-api/internal/models"
	"github.com/microcred/microcred-api/internal/storage"
)

type AwardHandler struct {
	catalog     *catalog.Service
	authHandler *auth.AuthHandler
	imageBase   string
}

func NewAwardHandler(catalogSvc *catalog.Service, authHandler *auth.AuthHandler, imageBase string) *AwardHandler {
	return &AwardHandler{catalog: catalogSvc, authHandler: authHandler, imageBase: imageBase}
}

type AwardResponse struct {
	ID          uint      `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image,omitempty"`
	Points      int       `json:"points"`
	Criteria    string    `json:"criteria,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *AwardHandler) awardResponse(a *models.Award) AwardResponse {
	return AwardResponse{
		ID:          a.ID,
		Slug:        a.Slug,
		Name:        a.Name,
		Description: a.Description,
		Image:       a.ImageURL(h.imageBase),
		Points:      a.Points,
		Criteria:    a.Criteria,
		CreatedAt:   a.CreatedAt,
	}
}

type AwardBody struct {
	Name        string `json:"name" doc:"Display name" required:"true" maxLength:"120"`
	Slug        string `json:"slug,omitempty" doc:"URL-stable identity; derived from the name when omitted" maxLength:"64"`
	Description string `json:"description" doc:"Description shown to participants"`
	Points      int    `json:"points" doc:"Point value" minimum:"0"`
	Criteria    string `json:"criteria,omitempty" doc:"Free-text eligibility criteria"`
}

type CreateAwardRequest struct {
	auth.AuthInput
	Body AwardBody
}

type AwardOutput struct {
	Body AwardResponse
}

func (h *AwardHandler) HandleCreate(ctx context.Context, input *CreateAwardRequest) (*AwardOutput, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleAdmin, models.RoleIssuer); err != nil {
		return nil, err
	}

	award, err := h.catalog.Create(ctx, catalog.AwardInput{
		Name:        input.Body.Name,
		Slug:        input.Body.Slug,
		Description: input.Body.Description,
		Points:      input.Body.Points,
		Criteria:    input.Body.Criteria,
	}, nil)
	if err != nil {
		if errors.Is(err, catalog.ErrDuplicateSlug) {
			return nil, huma.Error409Conflict("That slug is already in use")
		}
		return nil, huma.Error500InternalServerError("Failed to create award: " + err.Error())
	}

	return &AwardOutput{Body: h.awardResponse(award)}, nil
}

type EditAwardRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		AwardBody
		RemoveIcon bool `json:"remove_icon,omitempty" doc:"Delete the current icon"`
	}
}

func (h *AwardHandler) HandleEdit(ctx context.Context, input *EditAwardRequest) (*AwardOutput, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleAdmin, models.RoleIssuer); err != nil {
		return nil, err
	}

	award, err := h.catalog.Edit(ctx, input.ID, catalog.AwardInput{
		Name:        input.Body.Name,
		Slug:        input.Body.Slug,
		Description: input.Body.Description,
		Points:      input.Body.Points,
		Criteria:    input.Body.Criteria,
	}, nil, input.Body.RemoveIcon)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			return nil, huma.Error404NotFound("Award not found")
		case errors.Is(err, catalog.ErrDuplicateSlug):
			return nil, huma.Error409Conflict("That slug is already in use")
		}
		return nil, huma.Error500InternalServerError("Failed to update award: " + err.Error())
	}

	return &AwardOutput{Body: h.awardResponse(award)}, nil
}

type UploadIconRequest struct {
	auth.AuthInput
	ID      uint   `path:"id"`
	RawBody []byte `contentType:"application/octet-stream" doc:"Icon image payload (PNG/JPEG/WEBP-compatible)"`
}

func (h *AwardHandler) HandleUploadIcon(ctx context.Context, input *UploadIconRequest) (*AwardOutput, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleAdmin, models.RoleIssuer); err != nil {
		return nil, err
	}

	award, err := h.catalog.SetIcon(ctx, input.ID, bytes.NewReader(input.RawBody))
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			return nil, huma.Error404NotFound("Award not found")
		case errors.Is(err, storage.ErrUnsupportedFormat):
			return nil, huma.Error415UnsupportedMediaType("Could not process icon image")
		}
		return nil, huma.Error500InternalServerError("Failed to store icon: " + err.Error())
	}

	return &AwardOutput{Body: h.awardResponse(award)}, nil
}

type DeleteAwardRequest struct {
	auth.AuthInput
	ID uint `path:"id"`
}

func (h *AwardHandler) HandleDelete(ctx context.Context, input *DeleteAwardRequest) (*struct{}, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleAdmin); err != nil {
		return nil, err
	}

	if err := h.catalog.Delete(ctx, input.ID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, huma.Error404NotFound("Award not found")
		}
		return nil, huma.Error500InternalServerError("Failed to delete award: " + err.Error())
	}
	return nil, nil
}

type ListAwardsRequest struct {
	auth.AuthInput
}

type ListAwardsOutput struct {
	Body struct {
		Awards []AwardResponse `json:"awards"`
	}
}

func (h *AwardHandler) HandleList(ctx context.Context, input *ListAwardsRequest) (*ListAwardsOutput, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleAdmin, models.RoleIssuer); err != nil {
		return nil, err
	}

	awards, err := h.catalog.List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list awards")
	}

	res := &ListAwardsOutput{}
	for i := range awards {
		res.Body.Awards = append(res.Body.Awards, h.awardResponse(&awards[i]))
	}
	return res, nil
}
