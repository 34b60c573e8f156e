package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/microcred/microcred-api/internal/models"
)

type RegisterRequest struct {
	Body struct {
		Email     string `json:"email" doc:"Email address" required:"true"`
		Password  string `json:"password" doc:"Password" required:"true"`
		FirstName string `json:"first_name" doc:"Given name"`
		LastName  string `json:"last_name" doc:"Surname"`
	}
}

type SessionResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Message string `json:"message"`
		UserID  uint   `json:"user_id"`
	}
}

// HandleRegister creates an account with the participant role and logs it
// in.
func (h *AuthHandler) HandleRegister(ctx context.Context, input *RegisterRequest) (*SessionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Body.Email))
	if email == "" || input.Body.Password == "" {
		return nil, huma.Error400BadRequest("Email and password are required")
	}

	var count int64
	if err := h.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, huma.Error500InternalServerError("Database error")
	}
	if count > 0 {
		return nil, huma.Error409Conflict("That email is already registered")
	}

	user := models.User{
		Email:     email,
		FirstName: strings.TrimSpace(input.Body.FirstName),
		LastName:  strings.TrimSpace(input.Body.LastName),
	}
	if err := user.SetPassword(input.Body.Password); err != nil {
		return nil, huma.Error500InternalServerError("Failed to hash password")
	}

	var participant models.Role
	if err := h.db.WithContext(ctx).Where("name = ?", models.RoleParticipant).First(&participant).Error; err == nil {
		user.Roles = []models.Role{participant}
	}

	if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to create user")
	}

	return h.session(user.ID, "Registered")
}

type LoginRequest struct {
	Body struct {
		Email    string `json:"email" doc:"Email address" required:"true"`
		Password string `json:"password" doc:"Password" required:"true"`
	}
}

func (h *AuthHandler) HandleLogin(ctx context.Context, input *LoginRequest) (*SessionResponse, error) {
	email := strings.ToLower(strings.TrimSpace(input.Body.Email))

	var user models.User
	if err := h.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, huma.Error401Unauthorized("Invalid email or password")
	}
	if !user.CheckPassword(input.Body.Password) {
		return nil, huma.Error401Unauthorized("Invalid email or password")
	}

	return h.session(user.ID, "Logged in")
}

type LogoutResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Message string `json:"message"`
	}
}

func (h *AuthHandler) HandleLogout(ctx context.Context, _ *struct{}) (*LogoutResponse, error) {
	res := &LogoutResponse{
		SetCookie: http.Cookie{
			Name:     CookieName,
			Value:    "",
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Path:     "/",
		},
	}
	res.Body.Message = "Logged out"
	return res, nil
}

type MeRequest struct {
	AuthInput
}

type MeResponse struct {
	Body struct {
		ID        uint     `json:"id"`
		Email     string   `json:"email"`
		FirstName string   `json:"first_name"`
		LastName  string   `json:"last_name"`
		Roles     []string `json:"roles"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *MeRequest) (*MeResponse, error) {
	user, err := h.CurrentUser(ctx, input.AuthInput)
	if err != nil {
		return nil, err
	}

	res := &MeResponse{}
	res.Body.ID = user.ID
	res.Body.Email = user.Email
	res.Body.FirstName = user.FirstName
	res.Body.LastName = user.LastName
	for _, r := range user.Roles {
		res.Body.Roles = append(res.Body.Roles, r.Name)
	}
	return res, nil
}

func (h *AuthHandler) session(userID uint, message string) (*SessionResponse, error) {
	token, err := h.GenerateToken(userID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate token")
	}
	res := &SessionResponse{SetCookie: sessionCookie(token, time.Now().Add(TokenDuration))}
	res.Body.Message = message
	res.Body.UserID = userID
	return res, nil
}
