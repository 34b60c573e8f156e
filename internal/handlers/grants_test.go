package handlers

import (
	"context"
	"testing"

	"github.com/microcred/microcred-api/internal/auth"
	"github.com/microcred/microcred-api/internal/catalog"
	"github.com/microcred/microcred-api/internal/config"
	"github.com/microcred/microcred-api/internal/database"
	"github.com/microcred/microcred-api/internal/granting"
	"github.com/microcred/microcred-api/internal/ledger"
	"github.com/microcred/microcred-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	authHandler *auth.AuthHandler
	grants      *GrantHandler
	awards      *AwardHandler
	api         *APIHandler
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	if err := database.SeedRoles(db); err != nil {
		t.Fatalf("failed to seed roles: %v", err)
	}

	authHandler := auth.NewAuthHandler(&config.Config{JWTSecret: "test-secret"}, db)
	catalogSvc := catalog.NewService(db, nil)
	ledgerSvc := ledger.NewService(db)
	grantingSvc := granting.NewService(db, nil, nil, nil)

	return &testEnv{
		db:          db,
		authHandler: authHandler,
		grants:      NewGrantHandler(grantingSvc, ledgerSvc, authHandler, "/static/awards"),
		awards:      NewAwardHandler(catalogSvc, authHandler, "/static/awards"),
		api:         NewAPIHandler(db, catalogSvc, ledgerSvc, "/static/awards"),
	}
}

func (e *testEnv) createUser(t *testing.T, email string, roleNames ...string) models.User {
	t.Helper()
	var roles []models.Role
	if len(roleNames) > 0 {
		if err := e.db.Where("name IN ?", roleNames).Find(&roles).Error; err != nil {
			t.Fatalf("failed to load roles: %v", err)
		}
	}
	user := models.User{Email: email, FirstName: "Test", LastName: "User", Roles: roles}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", email, err)
	}
	return user
}

func (e *testEnv) login(t *testing.T, user models.User) auth.AuthInput {
	t.Helper()
	token, err := e.authHandler.GenerateToken(user.ID)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return auth.AuthInput{Cookie: auth.CookieName + "=" + token}
}

func (e *testEnv) createAward(t *testing.T, slug string, points int) models.Award {
	t.Helper()
	award := models.Award{Slug: slug, Name: slug, Description: "d", Points: points}
	if err := e.db.Create(&award).Error; err != nil {
		t.Fatalf("failed to create award: %v", err)
	}
	return award
}

func TestHandleGrant(t *testing.T) {
	env := setupEnv(t)
	issuer := env.createUser(t, "issuer@example.com", models.RoleIssuer)
	participant := env.createUser(t, "alice@example.com", models.RoleParticipant)
	award := env.createAward(t, "web-apprentice", 10)

	req := &GrantRequest{AuthInput: env.login(t, issuer)}
	req.Body.ParticipantID = participant.ID
	req.Body.AwardID = award.ID
	req.Body.Note = "well earned"

	resp, err := env.grants.HandleGrant(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleGrant returned error: %v", err)
	}
	if !resp.Body.Granted {
		t.Fatalf("expected granted=true, got %+v", resp.Body)
	}
	if resp.Body.AchievementID == 0 {
		t.Error("expected achievement id in response")
	}

	t.Run("duplicate is a benign non-event", func(t *testing.T) {
		resp, err := env.grants.HandleGrant(context.Background(), req)
		if err != nil {
			t.Fatalf("duplicate grant returned HTTP error: %v", err)
		}
		if resp.Body.Granted {
			t.Error("expected granted=false for duplicate")
		}
		if resp.Body.Status != string(granting.StatusAlreadyGranted) {
			t.Errorf("expected already_granted, got %s", resp.Body.Status)
		}

		var count int64
		env.db.Model(&models.Achievement{}).Count(&count)
		if count != 1 {
			t.Errorf("expected 1 achievement, got %d", count)
		}
	})

	t.Run("invalid participant is a caller error", func(t *testing.T) {
		bad := &GrantRequest{AuthInput: env.login(t, issuer)}
		bad.Body.ParticipantID = 9999
		bad.Body.AwardID = award.ID
		if _, err := env.grants.HandleGrant(context.Background(), bad); err == nil {
			t.Fatal("expected error for invalid participant")
		}
	})
}

func TestHandleGrant_RoleGate(t *testing.T) {
	env := setupEnv(t)
	participant := env.createUser(t, "alice@example.com", models.RoleParticipant)
	admin := env.createUser(t, "admin@example.com", models.RoleAdmin)
	award := env.createAward(t, "web-apprentice", 10)

	req := &GrantRequest{AuthInput: env.login(t, participant)}
	req.Body.ParticipantID = participant.ID
	req.Body.AwardID = award.ID
	if _, err := env.grants.HandleGrant(context.Background(), req); err == nil {
		t.Fatal("expected forbidden for a participant caller")
	}

	// admin is in the explicit allow set for granting
	req = &GrantRequest{AuthInput: env.login(t, admin)}
	req.Body.ParticipantID = participant.ID
	req.Body.AwardID = award.ID
	resp, err := env.grants.HandleGrant(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleGrant returned error for admin: %v", err)
	}
	if !resp.Body.Granted {
		t.Fatalf("expected granted=true for admin, got %+v", resp.Body)
	}
}

func TestHandleRevoke(t *testing.T) {
	env := setupEnv(t)
	admin := env.createUser(t, "admin@example.com", models.RoleAdmin)
	issuer := env.createUser(t, "issuer@example.com", models.RoleIssuer)
	alice := env.createUser(t, "alice@example.com", models.RoleParticipant)
	bob := env.createUser(t, "bob@example.com", models.RoleParticipant)
	award := env.createAward(t, "web-apprentice", 10)

	grantReq := &GrantRequest{AuthInput: env.login(t, issuer)}
	grantReq.Body.ParticipantID = alice.ID
	grantReq.Body.AwardID = award.ID
	grantResp, err := env.grants.HandleGrant(context.Background(), grantReq)
	if err != nil {
		t.Fatalf("HandleGrant returned error: %v", err)
	}
	achID := grantResp.Body.AchievementID

	t.Run("issuer cannot revoke", func(t *testing.T) {
		req := &RevokeRequest{AuthInput: env.login(t, issuer), ID: achID}
		req.Body.ParticipantID = alice.ID
		if _, err := env.grants.HandleRevoke(context.Background(), req); err == nil {
			t.Fatal("expected forbidden for issuer caller")
		}
	})

	t.Run("participant mismatch", func(t *testing.T) {
		req := &RevokeRequest{AuthInput: env.login(t, admin), ID: achID}
		req.Body.ParticipantID = bob.ID
		if _, err := env.grants.HandleRevoke(context.Background(), req); err == nil {
			t.Fatal("expected error for mismatched participant")
		}
		var count int64
		env.db.Model(&models.Achievement{}).Count(&count)
		if count != 1 {
			t.Errorf("ledger changed after mismatched revoke: %d rows", count)
		}
	})

	t.Run("admin revokes", func(t *testing.T) {
		req := &RevokeRequest{AuthInput: env.login(t, admin), ID: achID}
		req.Body.ParticipantID = alice.ID
		resp, err := env.grants.HandleRevoke(context.Background(), req)
		if err != nil {
			t.Fatalf("HandleRevoke returned error: %v", err)
		}
		if resp.Body.Message != "Award revoked" {
			t.Errorf("unexpected message %q", resp.Body.Message)
		}
		var count int64
		env.db.Model(&models.Achievement{}).Count(&count)
		if count != 0 {
			t.Errorf("expected empty ledger, got %d rows", count)
		}
	})
}
