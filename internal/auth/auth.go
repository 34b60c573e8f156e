package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/microcred/microcred-api/internal/config"
	"github.com/microcred/microcred-api/internal/models"
	"gorm.io/gorm"
)

const (
	TokenDuration = 24 * time.Hour
	CookieName    = "auth_token"
)

// AuthInput carries the two accepted credentials: the JWT session cookie
// for browser callers and X-API-KEY for machine callers.
type AuthInput struct {
	Cookie string `header:"Cookie" doc:"Session cookie" required:"false"`
	APIKey string `header:"X-API-KEY" doc:"API key for machine access" required:"false"`
}

type AuthHandler struct {
	cfg *config.Config
	db  *gorm.DB
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB) *AuthHandler {
	return &AuthHandler{cfg: cfg, db: db}
}

func (h *AuthHandler) GenerateToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

// Authorize resolves the calling user's ID from an API key or the session
// cookie. It authenticates nothing; the credential was issued earlier.
func (h *AuthHandler) Authorize(ctx context.Context, input AuthInput) (uint, error) {
	if input.APIKey != "" {
		var keyModel models.APIKey
		if err := h.db.WithContext(ctx).Where("key = ?", input.APIKey).First(&keyModel).Error; err != nil {
			return 0, huma.Error401Unauthorized("Invalid API key")
		}
		if keyModel.ExpiresAt != nil && time.Now().After(*keyModel.ExpiresAt) {
			return 0, huma.Error401Unauthorized("API key expired")
		}
		h.db.WithContext(ctx).Model(&keyModel).Update("last_used_at", time.Now())
		return keyModel.UserID, nil
	}

	tokenString := readCookie(input.Cookie, CookieName)
	if tokenString == "" {
		return 0, huma.Error401Unauthorized("No token found")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, huma.Error401Unauthorized("Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, huma.Error401Unauthorized("Invalid token claims")
	}
	userIDFloat, ok := claims["user_id"].(float64)
	if !ok {
		return 0, huma.Error401Unauthorized("Invalid token claims")
	}
	return uint(userIDFloat), nil
}

// CurrentUser is Authorize plus a role-preloaded user record, for the
// handlers that gate on roles.
func (h *AuthHandler) CurrentUser(ctx context.Context, input AuthInput) (*models.User, error) {
	userID, err := h.Authorize(ctx, input)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := h.db.WithContext(ctx).Preload("Roles").First(&user, userID).Error; err != nil {
		return nil, huma.Error401Unauthorized("User not found")
	}
	return &user, nil
}

// RequireRole is the flat capability gate: the user must hold at least one
// of the named roles. Callers that accept issuer or admin list both.
func (h *AuthHandler) RequireRole(user *models.User, names ...string) error {
	if !user.HasRole(names...) {
		return huma.Error403Forbidden("Access denied: missing required role (" + strings.Join(names, " or ") + ")")
	}
	return nil
}

func readCookie(cookieHeader, name string) string {
	req := http.Request{Header: http.Header{"Cookie": []string{cookieHeader}}}
	c, err := req.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func sessionCookie(token string, expires time.Time) http.Cookie {
	return http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  expires,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
}
