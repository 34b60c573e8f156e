package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/microcred/microcred-api/internal/catalog"
	"github.com/microcred/microcred-api/internal/ledger"
	"github.com/microcred/microcred-api/internal/models"
	"gorm.io/gorm"
)

// APIHandler serves the public, read-only views of the catalog and the
// ledger.
type APIHandler struct {
	db        *gorm.DB
	catalog   *catalog.Service
	ledger    *ledger.Service
	imageBase string
}

func NewAPIHandler(db *gorm.DB, catalogSvc *catalog.Service, ledgerSvc *ledger.Service, imageBase string) *APIHandler {
	return &APIHandler{db: db, catalog: catalogSvc, ledger: ledgerSvc, imageBase: imageBase}
}

type APIAward struct {
	ID          uint   `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image,omitempty"`
	Points      int    `json:"points"`
	Criteria    string `json:"criteria,omitempty"`
}

type APIIssuer struct {
	ID   *uint  `json:"id"`
	Name string `json:"name,omitempty"`
}

func (h *APIHandler) apiAward(a *models.Award) APIAward {
	return APIAward{
		ID:          a.ID,
		Slug:        a.Slug,
		Name:        a.Name,
		Description: a.Description,
		Image:       a.ImageURL(h.imageBase),
		Points:      a.Points,
		Criteria:    a.Criteria,
	}
}

func apiIssuer(issuedBy *models.User) APIIssuer {
	if issuedBy == nil {
		return APIIssuer{}
	}
	id := issuedBy.ID
	return APIIssuer{ID: &id, Name: issuedBy.FullName()}
}

type PublicAwardsOutput struct {
	Body struct {
		Awards []APIAward `json:"awards"`
	}
}

func (h *APIHandler) HandleListAwards(ctx context.Context, _ *struct{}) (*PublicAwardsOutput, error) {
	awards, err := h.catalog.List(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list awards")
	}

	res := &PublicAwardsOutput{}
	for i := range awards {
		res.Body.Awards = append(res.Body.Awards, h.apiAward(&awards[i]))
	}
	return res, nil
}

type AwardHoldersRequest struct {
	Slug string `path:"slug"`
}

type AwardHoldersOutput struct {
	Body struct {
		Award        APIAward `json:"award"`
		Participants []struct {
			ID       uint      `json:"id"`
			Name     string    `json:"name"`
			Email    string    `json:"email"`
			IssuedAt time.Time `json:"issued_at"`
			IssuedBy APIIssuer `json:"issued_by"`
		} `json:"participants"`
	}
}

// HandleAwardHolders lists everyone holding an award, ordered by surname
// then given name.
func (h *APIHandler) HandleAwardHolders(ctx context.Context, input *AwardHoldersRequest) (*AwardHoldersOutput, error) {
	award, err := h.catalog.GetBySlug(ctx, input.Slug)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, huma.Error404NotFound("Award not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load award")
	}

	rows, err := h.ledger.ListForAward(ctx, input.Slug)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list holders")
	}

	res := &AwardHoldersOutput{}
	res.Body.Award = h.apiAward(award)
	for _, r := range rows {
		res.Body.Participants = append(res.Body.Participants, struct {
			ID       uint      `json:"id"`
			Name     string    `json:"name"`
			Email    string    `json:"email"`
			IssuedAt time.Time `json:"issued_at"`
			IssuedBy APIIssuer `json:"issued_by"`
		}{
			ID:       r.Participant.ID,
			Name:     r.Participant.FullName(),
			Email:    r.Participant.Email,
			IssuedAt: r.IssuedAt,
			IssuedBy: apiIssuer(r.IssuedBy),
		})
	}
	return res, nil
}

type ParticipantAwardsRequest struct {
	ParticipantID uint `path:"participant_id"`
}

type ParticipantAwardEntry struct {
	Award    APIAward  `json:"award"`
	IssuedAt time.Time `json:"issued_at"`
	IssuedBy APIIssuer `json:"issued_by"`
	Note     string    `json:"note,omitempty"`
}

type ParticipantAwardsOutput struct {
	Body struct {
		Participant struct {
			ID    uint   `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"participant"`
		TotalPoints int                     `json:"total_points"`
		Awards      []ParticipantAwardEntry `json:"awards"`
	}
}

// HandleParticipantAwards lists a participant's achievements newest first
// with their point total.
func (h *APIHandler) HandleParticipantAwards(ctx context.Context, input *ParticipantAwardsRequest) (*ParticipantAwardsOutput, error) {
	var user models.User
	if err := h.db.WithContext(ctx).First(&user, input.ParticipantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("Participant not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load participant")
	}

	result, err := h.ledger.ListForParticipant(ctx, user.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list achievements")
	}

	res := &ParticipantAwardsOutput{}
	res.Body.Participant.ID = user.ID
	res.Body.Participant.Name = user.FullName()
	res.Body.Participant.Email = user.Email
	res.Body.TotalPoints = result.TotalPoints
	for _, ach := range result.Achievements {
		res.Body.Awards = append(res.Body.Awards, ParticipantAwardEntry{
			Award:    h.apiAward(&ach.Award),
			IssuedAt: ach.IssuedAt,
			IssuedBy: apiIssuer(ach.IssuedBy),
			Note:     ach.Note,
		})
	}
	return res, nil
}

type ParticipantAwardDetailRequest struct {
	ParticipantID uint   `path:"participant_id"`
	Slug          string `path:"slug"`
}

type ParticipantAwardDetailOutput struct {
	Body struct {
		ParticipantID uint      `json:"participant_id"`
		Award         APIAward  `json:"award"`
		IssuedAt      time.Time `json:"issued_at"`
		IssuedBy      APIIssuer `json:"issued_by"`
		Note          string    `json:"note,omitempty"`
	}
}

func (h *APIHandler) HandleParticipantAwardDetail(ctx context.Context, input *ParticipantAwardDetailRequest) (*ParticipantAwardDetailOutput, error) {
	ach, err := h.ledger.GetForParticipantBySlug(ctx, input.ParticipantID, input.Slug)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, huma.Error404NotFound("Achievement not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load achievement")
	}

	res := &ParticipantAwardDetailOutput{}
	res.Body.ParticipantID = input.ParticipantID
	res.Body.Award = h.apiAward(&ach.Award)
	res.Body.IssuedAt = ach.IssuedAt
	res.Body.IssuedBy = apiIssuer(ach.IssuedBy)
	res.Body.Note = ach.Note
	return res, nil
}
