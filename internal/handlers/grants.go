package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/microcred/microcred-api/internal/auth"
	"github.com/microcred/microcred-api/internal/granting"
	"github.com/microcred/microcred-api/internal/ledger"
	"github.com/microcred/microcred-api/internal/models"
)

type GrantHandler struct {
	granting    *granting.Service
	ledger      *ledger.Service
	authHandler *auth.AuthHandler
	imageBase   string
}

func NewGrantHandler(grantingSvc *granting.Service, ledgerSvc *ledger.Service, authHandler *auth.AuthHandler, imageBase string) *GrantHandler {
	return &GrantHandler{granting: grantingSvc, ledger: ledgerSvc, authHandler: authHandler, imageBase: imageBase}
}

type GrantRequest struct {
	auth.AuthInput
	Body struct {
		ParticipantID uint   `json:"participant_id" doc:"User receiving the award" required:"true"`
		AwardID       uint   `json:"award_id" doc:"Award to grant" required:"true"`
		Note          string `json:"note,omitempty" doc:"Free-text note kept on the achievement" maxLength:"255"`
	}
}

type GrantResponse struct {
	Body struct {
		Granted       bool   `json:"granted"`
		Status        string `json:"status"`
		Message       string `json:"message"`
		AchievementID uint   `json:"achievement_id,omitempty"`
	}
}

// HandleGrant issues an award. A duplicate grant is a benign non-event,
// reported in the body rather than as an HTTP error.
func (h *GrantHandler) HandleGrant(ctx context.Context, input *GrantRequest) (*GrantResponse, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleIssuer, models.RoleAdmin); err != nil {
		return nil, err
	}

	result, err := h.granting.Grant(ctx, input.Body.ParticipantID, input.Body.AwardID, user.ID, input.Body.Note)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to process grant: " + err.Error())
	}

	if result.Status == granting.StatusInvalidReference {
		return nil, huma.Error400BadRequest(result.Message)
	}

	res := &GrantResponse{}
	res.Body.Granted = result.OK()
	res.Body.Status = string(result.Status)
	res.Body.Message = result.Message
	if result.Achievement != nil {
		res.Body.AchievementID = result.Achievement.ID
	}
	return res, nil
}

type RevokeRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		ParticipantID uint `json:"participant_id" doc:"Participant the achievement is expected to belong to" required:"true"`
	}
}

type RevokeResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

// HandleRevoke hard-deletes an achievement. The expected participant id
// guards against a mismatched achievement/user pair from the same request.
func (h *GrantHandler) HandleRevoke(ctx context.Context, input *RevokeRequest) (*RevokeResponse, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleAdmin); err != nil {
		return nil, err
	}

	if err := h.ledger.Revoke(ctx, input.ID, input.Body.ParticipantID); err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			return nil, huma.Error404NotFound("Achievement not found")
		case errors.Is(err, ledger.ErrForbidden):
			return nil, huma.Error403Forbidden("Achievement does not belong to that participant")
		}
		return nil, huma.Error500InternalServerError("Failed to revoke achievement: " + err.Error())
	}

	res := &RevokeResponse{}
	res.Body.Message = "Award revoked"
	return res, nil
}

type UpdateNoteRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		Note string `json:"note" doc:"Replacement note" maxLength:"255"`
	}
}

func (h *GrantHandler) HandleUpdateNote(ctx context.Context, input *UpdateNoteRequest) (*RevokeResponse, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleIssuer, models.RoleAdmin); err != nil {
		return nil, err
	}

	if err := h.ledger.UpdateNote(ctx, input.ID, input.Body.Note); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, huma.Error404NotFound("Achievement not found")
		}
		return nil, huma.Error500InternalServerError("Failed to update note")
	}

	res := &RevokeResponse{}
	res.Body.Message = "Note updated"
	return res, nil
}

type IssuedEntry struct {
	AchievementID uint      `json:"achievement_id"`
	Award         string    `json:"award"`
	AwardSlug     string    `json:"award_slug"`
	Points        int       `json:"points"`
	Participant   string    `json:"participant"`
	Email         string    `json:"email"`
	IssuedAt      time.Time `json:"issued_at"`
	IssuedBy      string    `json:"issued_by,omitempty"`
	Note          string    `json:"note,omitempty"`
}

type ListIssuedRequest struct {
	auth.AuthInput
}

type ListIssuedOutput struct {
	Body struct {
		Achievements []IssuedEntry `json:"achievements"`
	}
}

// HandleListIssued is the issuer's overview of everything handed out,
// most valuable awards first.
func (h *GrantHandler) HandleListIssued(ctx context.Context, input *ListIssuedRequest) (*ListIssuedOutput, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleIssuer, models.RoleAdmin); err != nil {
		return nil, err
	}

	achs, err := h.ledger.ListIssued(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list issued awards")
	}

	res := &ListIssuedOutput{}
	for _, a := range achs {
		entry := IssuedEntry{
			AchievementID: a.ID,
			Award:         a.Award.Name,
			AwardSlug:     a.Award.Slug,
			Points:        a.Award.Points,
			Participant:   a.Participant.FullName(),
			Email:         a.Participant.Email,
			IssuedAt:      a.IssuedAt,
			Note:          a.Note,
		}
		if a.IssuedBy != nil {
			entry.IssuedBy = a.IssuedBy.FullName()
		}
		res.Body.Achievements = append(res.Body.Achievements, entry)
	}
	return res, nil
}
