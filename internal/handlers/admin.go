package handlers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/microcred/microcred-api/internal/auth"
	"github.com/microcred/microcred-api/internal/ledger"
	"github.com/microcred/microcred-api/internal/models"
	"gorm.io/gorm"
)

type AdminHandler struct {
	db          *gorm.DB
	ledger      *ledger.Service
	authHandler *auth.AuthHandler
}

func NewAdminHandler(db *gorm.DB, ledgerSvc *ledger.Service, authHandler *auth.AuthHandler) *AdminHandler {
	return &AdminHandler{db: db, ledger: ledgerSvc, authHandler: authHandler}
}

type StatsRequest struct {
	auth.AuthInput
}

type StatsOutput struct {
	Body struct {
		Users        int64 `json:"users"`
		Awards       int64 `json:"awards"`
		Achievements int64 `json:"achievements"`
	}
}

func (h *AdminHandler) HandleStats(ctx context.Context, input *StatsRequest) (*StatsOutput, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleAdmin); err != nil {
		return nil, err
	}

	res := &StatsOutput{}
	if err := h.db.WithContext(ctx).Model(&models.User{}).Count(&res.Body.Users).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to count users")
	}
	if err := h.db.WithContext(ctx).Model(&models.Award{}).Count(&res.Body.Awards).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to count awards")
	}
	if err := h.db.WithContext(ctx).Model(&models.Achievement{}).Count(&res.Body.Achievements).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to count achievements")
	}
	return res, nil
}

type UserSummary struct {
	ID        uint     `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
}

func userSummary(u *models.User) UserSummary {
	s := UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
	for _, r := range u.Roles {
		s.Roles = append(s.Roles, r.Name)
	}
	return s
}

type ListUsersRequest struct {
	auth.AuthInput
	Query string `query:"q" doc:"Search in email and name" required:"false"`
}

type ListUsersOutput struct {
	Body struct {
		Users []UserSummary `json:"users"`
	}
}

func (h *AdminHandler) HandleListUsers(ctx context.Context, input *ListUsersRequest) (*ListUsersOutput, error) {
	user, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(user, models.RoleAdmin); err != nil {
		return nil, err
	}

	q := h.db.WithContext(ctx).Preload("Roles")
	if s := strings.TrimSpace(input.Query); s != "" {
		like := "%" + s + "%"
		q = q.Where("email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like)
	}

	var users []models.User
	if err := q.Order("first_name asc, last_name asc, email asc").Find(&users).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to list users")
	}

	res := &ListUsersOutput{}
	for i := range users {
		res.Body.Users = append(res.Body.Users, userSummary(&users[i]))
	}
	return res, nil
}

type GetUserRequest struct {
	auth.AuthInput
	ID uint `path:"id"`
}

type GetUserOutput struct {
	Body struct {
		User         UserSummary `json:"user"`
		TotalPoints  int         `json:"total_points"`
		Achievements []struct {
			ID       uint      `json:"id"`
			Award    string    `json:"award"`
			Slug     string    `json:"slug"`
			Points   int       `json:"points"`
			IssuedAt time.Time `json:"issued_at"`
			Note     string    `json:"note,omitempty"`
		} `json:"achievements"`
	}
}

func (h *AdminHandler) HandleGetUser(ctx context.Context, input *GetUserRequest) (*GetUserOutput, error) {
	actor, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}

	var target models.User
	if err := h.db.WithContext(ctx).Preload("Roles").First(&target, input.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("User not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load user")
	}

	awards, err := h.ledger.ListForParticipant(ctx, target.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list achievements")
	}

	res := &GetUserOutput{}
	res.Body.User = userSummary(&target)
	res.Body.TotalPoints = awards.TotalPoints
	for _, a := range awards.Achievements {
		res.Body.Achievements = append(res.Body.Achievements, struct {
			ID       uint      `json:"id"`
			Award    string    `json:"award"`
			Slug     string    `json:"slug"`
			Points   int       `json:"points"`
			IssuedAt time.Time `json:"issued_at"`
			Note     string    `json:"note,omitempty"`
		}{
			ID:       a.ID,
			Award:    a.Award.Name,
			Slug:     a.Award.Slug,
			Points:   a.Award.Points,
			IssuedAt: a.IssuedAt,
			Note:     a.Note,
		})
	}
	return res, nil
}

type SetRolesRequest struct {
	auth.AuthInput
	ID   uint `path:"id"`
	Body struct {
		Roles []string `json:"roles" doc:"Replacement role set; unknown names are rejected" required:"true"`
	}
}

type SetRolesOutput struct {
	Body struct {
		User UserSummary `json:"user"`
	}
}

// HandleSetRoles replaces a user's role assignments with the given set.
func (h *AdminHandler) HandleSetRoles(ctx context.Context, input *SetRolesRequest) (*SetRolesOutput, error) {
	actor, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}

	known := map[string]bool{}
	for _, n := range models.AllRoles {
		known[n] = true
	}
	selected := map[string]bool{}
	for _, n := range input.Body.Roles {
		if !known[n] {
			return nil, huma.Error400BadRequest("Unknown role: " + n)
		}
		selected[n] = true
	}
	names := make([]string, 0, len(selected))
	for n := range selected {
		names = append(names, n)
	}
	sort.Strings(names)

	var target models.User
	if err := h.db.WithContext(ctx).First(&target, input.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("User not found")
		}
		return nil, huma.Error500InternalServerError("Failed to load user")
	}

	var roles []models.Role
	if len(names) > 0 {
		if err := h.db.WithContext(ctx).Where("name IN ?", names).Find(&roles).Error; err != nil {
			return nil, huma.Error500InternalServerError("Failed to load roles")
		}
	}

	if err := h.db.WithContext(ctx).Model(&target).Association("Roles").Replace(roles); err != nil {
		return nil, huma.Error500InternalServerError("Failed to update roles")
	}

	target.Roles = roles
	res := &SetRolesOutput{}
	res.Body.User = userSummary(&target)
	return res, nil
}

type DeleteUserRequest struct {
	auth.AuthInput
	ID uint `path:"id"`
}

// HandleDeleteUser removes a user; their participant achievements are
// deleted and achievements they issued keep the row with issuer nulled.
func (h *AdminHandler) HandleDeleteUser(ctx context.Context, input *DeleteUserRequest) (*struct{}, error) {
	actor, err := h.authHandler.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}
	if err := h.authHandler.RequireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}

	if err := h.ledger.DeleteUser(ctx, input.ID); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, huma.Error404NotFound("User not found")
		}
		return nil, huma.Error500InternalServerError("Failed to delete user: " + err.Error())
	}
	return nil, nil
}
