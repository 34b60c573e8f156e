package handlers

import (
	"context"
	"testing"

	"github.com/microcred/microcred-api/internal/models"
)

func TestHandleCreateAward(t *testing.T) {
	env := setupEnv(t)
	issuer := env.createUser(t, "issuer@example.com", models.RoleIssuer)
	participant := env.createUser(t, "alice@example.com", models.RoleParticipant)

	req := &CreateAwardRequest{AuthInput: env.login(t, issuer)}
	req.Body.Name = "Web  Apprentice!!"
	req.Body.Description = "Shipped a first site"
	req.Body.Points = 10

	resp, err := env.awards.HandleCreate(context.Background(), req)
	if err != nil {
		t.Fatalf("HandleCreate returned error: %v", err)
	}
	if resp.Body.Slug != "web-apprentice" {
		t.Errorf("expected derived slug web-apprentice, got %q", resp.Body.Slug)
	}

	t.Run("duplicate slug conflicts", func(t *testing.T) {
		dup := &CreateAwardRequest{AuthInput: env.login(t, issuer)}
		dup.Body.Name = "Other"
		dup.Body.Slug = "web-apprentice"
		if _, err := env.awards.HandleCreate(context.Background(), dup); err == nil {
			t.Fatal("expected conflict for duplicate slug")
		}
	})

	t.Run("participant cannot create", func(t *testing.T) {
		forbidden := &CreateAwardRequest{AuthInput: env.login(t, participant)}
		forbidden.Body.Name = "Nope"
		if _, err := env.awards.HandleCreate(context.Background(), forbidden); err == nil {
			t.Fatal("expected forbidden for participant caller")
		}
	})
}

func TestHandleListAwards_Ordering(t *testing.T) {
	env := setupEnv(t)
	issuer := env.createUser(t, "issuer@example.com", models.RoleIssuer)
	env.createAward(t, "bronze", 5)
	env.createAward(t, "gold", 50)
	env.createAward(t, "silver", 20)

	resp, err := env.awards.HandleList(context.Background(), &ListAwardsRequest{AuthInput: env.login(t, issuer)})
	if err != nil {
		t.Fatalf("HandleList returned error: %v", err)
	}

	var slugs []string
	for _, a := range resp.Body.Awards {
		slugs = append(slugs, a.Slug)
	}
	want := []string{"gold", "silver", "bronze"}
	if len(slugs) != len(want) {
		t.Fatalf("expected %d awards, got %d", len(want), len(slugs))
	}
	for i := range want {
		if slugs[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], slugs[i])
		}
	}
}

func TestPublicParticipantAwards(t *testing.T) {
	env := setupEnv(t)
	issuer := env.createUser(t, "issuer@example.com", models.RoleIssuer)
	alice := env.createUser(t, "alice@example.com", models.RoleParticipant)
	first := env.createAward(t, "web-apprentice", 10)
	second := env.createAward(t, "go-pro", 25)

	for _, award := range []models.Award{first, second} {
		req := &GrantRequest{AuthInput: env.login(t, issuer)}
		req.Body.ParticipantID = alice.ID
		req.Body.AwardID = award.ID
		if _, err := env.grants.HandleGrant(context.Background(), req); err != nil {
			t.Fatalf("HandleGrant returned error: %v", err)
		}
	}

	resp, err := env.api.HandleParticipantAwards(context.Background(), &ParticipantAwardsRequest{ParticipantID: alice.ID})
	if err != nil {
		t.Fatalf("HandleParticipantAwards returned error: %v", err)
	}
	if resp.Body.TotalPoints != 35 {
		t.Errorf("expected 35 total points, got %d", resp.Body.TotalPoints)
	}
	if len(resp.Body.Awards) != 2 {
		t.Fatalf("expected 2 awards, got %d", len(resp.Body.Awards))
	}
	if resp.Body.Awards[0].IssuedBy.Name != "Test User" {
		t.Errorf("expected issuer name, got %q", resp.Body.Awards[0].IssuedBy.Name)
	}

	t.Run("unknown participant", func(t *testing.T) {
		if _, err := env.api.HandleParticipantAwards(context.Background(), &ParticipantAwardsRequest{ParticipantID: 9999}); err == nil {
			t.Fatal("expected 404 for unknown participant")
		}
	})
}

func TestPublicAwardHolders(t *testing.T) {
	env := setupEnv(t)
	issuer := env.createUser(t, "issuer@example.com", models.RoleIssuer)
	award := env.createAward(t, "web-apprentice", 10)

	alice := models.User{Email: "alice@example.com", FirstName: "Alice", LastName: "Archer"}
	zed := models.User{Email: "zed@example.com", FirstName: "Zed", LastName: "Zimmer"}
	for _, u := range []*models.User{&alice, &zed} {
		if err := env.db.Create(u).Error; err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		req := &GrantRequest{AuthInput: env.login(t, issuer)}
		req.Body.ParticipantID = u.ID
		req.Body.AwardID = award.ID
		if _, err := env.grants.HandleGrant(context.Background(), req); err != nil {
			t.Fatalf("HandleGrant returned error: %v", err)
		}
	}

	resp, err := env.api.HandleAwardHolders(context.Background(), &AwardHoldersRequest{Slug: "web-apprentice"})
	if err != nil {
		t.Fatalf("HandleAwardHolders returned error: %v", err)
	}
	if len(resp.Body.Participants) != 2 {
		t.Fatalf("expected 2 holders, got %d", len(resp.Body.Participants))
	}
	if resp.Body.Participants[0].Name != "Alice Archer" || resp.Body.Participants[1].Name != "Zed Zimmer" {
		t.Errorf("holders not ordered by surname: %v", resp.Body.Participants)
	}

	t.Run("unknown award", func(t *testing.T) {
		if _, err := env.api.HandleAwardHolders(context.Background(), &AwardHoldersRequest{Slug: "nope"}); err == nil {
			t.Fatal("expected 404 for unknown award")
		}
	})
}
