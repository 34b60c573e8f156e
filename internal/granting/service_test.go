package granting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/microcred/microcred-api/internal/database"
	"github.com/microcred/microcred-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func seedGrantFixtures(t *testing.T, db *gorm.DB) (participant, issuer models.User, award models.Award) {
	t.Helper()
	participant = models.User{Email: "alice@example.com", FirstName: "Alice", LastName: "Archer"}
	issuer = models.User{Email: "issuer@example.com", FirstName: "Ivy", LastName: "Issuer"}
	if err := db.Create(&participant).Error; err != nil {
		t.Fatalf("failed to create participant: %v", err)
	}
	if err := db.Create(&issuer).Error; err != nil {
		t.Fatalf("failed to create issuer: %v", err)
	}
	award = models.Award{Slug: "web-apprentice", Name: "Web Apprentice", Description: "Built a site", Points: 10}
	if err := db.Create(&award).Error; err != nil {
		t.Fatalf("failed to create award: %v", err)
	}
	return participant, issuer, award
}

type recordingSink struct {
	events   []string
	payloads []map[string]any
}

func (s *recordingSink) Record(event string, payload map[string]any) {
	s.events = append(s.events, event)
	s.payloads = append(s.payloads, payload)
}

type panickySink struct{}

func (panickySink) Record(string, map[string]any) { panic("sink down") }

type failingNotifier struct{ calls int }

func (n *failingNotifier) NotifyGrant(models.User, models.Award) error {
	n.calls++
	return errors.New("smtp unreachable")
}

func TestGrant_Succeeds(t *testing.T) {
	db := setupDB(t)
	participant, issuer, award := seedGrantFixtures(t, db)

	sink := &recordingSink{}
	svc := NewService(db, nil, sink, nil)

	result, err := svc.Grant(context.Background(), participant.ID, award.ID, issuer.ID, "great work")
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	if !result.OK() {
		t.Fatalf("expected success, got %s: %s", result.Status, result.Message)
	}
	if result.Message != "Award granted" {
		t.Errorf("unexpected message: %q", result.Message)
	}

	var ach models.Achievement
	if err := db.First(&ach).Error; err != nil {
		t.Fatalf("failed to load achievement: %v", err)
	}
	if ach.ParticipantID != participant.ID || ach.AwardID != award.ID {
		t.Errorf("achievement references wrong pair: %d/%d", ach.ParticipantID, ach.AwardID)
	}
	if ach.IssuedByID == nil || *ach.IssuedByID != issuer.ID {
		t.Errorf("issuer reference not recorded")
	}
	if ach.Note != "great work" {
		t.Errorf("expected note to be stored, got %q", ach.Note)
	}
	if ach.IssuedAt.IsZero() {
		t.Error("issued_at not set")
	}

	if len(sink.events) != 1 || sink.events[0] != "award.granted" {
		t.Fatalf("expected one award.granted audit event, got %v", sink.events)
	}
	if sink.payloads[0]["participant_id"] != participant.ID {
		t.Errorf("audit payload participant_id mismatch: %v", sink.payloads[0])
	}
}

func TestGrant_AlreadyGranted(t *testing.T) {
	db := setupDB(t)
	participant, issuer, award := seedGrantFixtures(t, db)

	sink := &recordingSink{}
	svc := NewService(db, nil, sink, nil)

	if result, err := svc.Grant(context.Background(), participant.ID, award.ID, issuer.ID, ""); err != nil || !result.OK() {
		t.Fatalf("first grant failed: %v %v", result, err)
	}

	result, err := svc.Grant(context.Background(), participant.ID, award.ID, issuer.ID, "")
	if err != nil {
		t.Fatalf("duplicate grant returned error: %v", err)
	}
	if result.Status != StatusAlreadyGranted {
		t.Fatalf("expected already_granted, got %s", result.Status)
	}

	var count int64
	db.Model(&models.Achievement{}).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 achievement, got %d", count)
	}
	if len(sink.events) != 1 {
		t.Errorf("duplicate grant must not emit an audit event, got %d events", len(sink.events))
	}
}

func TestGrant_InvalidReference(t *testing.T) {
	db := setupDB(t)
	participant, issuer, award := seedGrantFixtures(t, db)

	svc := NewService(db, nil, nil, nil)

	cases := []struct {
		name                             string
		participantID, awardID, issuerID uint
	}{
		{"missing participant", 9999, award.ID, issuer.ID},
		{"missing award", participant.ID, 9999, issuer.ID},
		{"missing issuer", participant.ID, award.ID, 9999},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := svc.Grant(context.Background(), tc.participantID, tc.awardID, tc.issuerID, "")
			if err != nil {
				t.Fatalf("Grant returned error: %v", err)
			}
			if result.Status != StatusInvalidReference {
				t.Fatalf("expected invalid_reference, got %s", result.Status)
			}
		})
	}

	var count int64
	db.Model(&models.Achievement{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no achievements, got %d", count)
	}
}

type denyPolicy struct{}

func (denyPolicy) Eligible(_ *models.User, _ *models.Award) (bool, string) {
	return false, "prerequisite award missing"
}

func TestGrant_NotEligible(t *testing.T) {
	db := setupDB(t)
	participant, issuer, award := seedGrantFixtures(t, db)

	svc := NewService(db, denyPolicy{}, nil, nil)

	result, err := svc.Grant(context.Background(), participant.ID, award.ID, issuer.ID, "")
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	if result.Status != StatusNotEligible {
		t.Fatalf("expected not_eligible, got %s", result.Status)
	}
	if result.Message != "Not eligible: prerequisite award missing" {
		t.Errorf("unexpected message: %q", result.Message)
	}

	var count int64
	db.Model(&models.Achievement{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no achievements, got %d", count)
	}
}

type panicPolicy struct{}

func (panicPolicy) Eligible(_ *models.User, _ *models.Award) (bool, string) {
	panic("rule engine exploded")
}

func TestGrant_PolicyPanicIsUnexpectedFailure(t *testing.T) {
	db := setupDB(t)
	participant, issuer, award := seedGrantFixtures(t, db)

	svc := NewService(db, panicPolicy{}, nil, nil)

	_, err := svc.Grant(context.Background(), participant.ID, award.ID, issuer.ID, "")
	if err == nil {
		t.Fatal("expected error from panicking policy")
	}

	var count int64
	db.Model(&models.Achievement{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no achievements after policy panic, got %d", count)
	}
}

// racingPolicy commits a conflicting grant between the service's pre-check
// and its insert, standing in for a concurrent issuer. The unique index,
// not the pre-check, must resolve the race.
type racingPolicy struct {
	db            *gorm.DB
	participantID uint
	awardID       uint
	issuerID      uint
}

func (p racingPolicy) Eligible(_ *models.User, _ *models.Award) (bool, string) {
	other := models.Achievement{
		ParticipantID: p.participantID,
		AwardID:       p.awardID,
		IssuedByID:    &p.issuerID,
		IssuedAt:      time.Now().UTC(),
	}
	if err := p.db.Create(&other).Error; err != nil {
		panic(err)
	}
	return true, "OK"
}

func TestGrant_ConcurrentDuplicateHitsConstraint(t *testing.T) {
	db := setupDB(t)
	participant, issuer, award := seedGrantFixtures(t, db)

	svc := NewService(db, racingPolicy{db: db, participantID: participant.ID, awardID: award.ID, issuerID: issuer.ID}, nil, nil)

	result, err := svc.Grant(context.Background(), participant.ID, award.ID, issuer.ID, "")
	if err != nil {
		t.Fatalf("Grant returned error instead of remapping the constraint violation: %v", err)
	}
	if result.Status != StatusAlreadyGranted {
		t.Fatalf("expected already_granted from the constraint path, got %s", result.Status)
	}

	var count int64
	db.Model(&models.Achievement{}).Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 achievement after the race, got %d", count)
	}
}

func TestGrant_BestEffortSideChannels(t *testing.T) {
	db := setupDB(t)
	participant, issuer, award := seedGrantFixtures(t, db)

	n := &failingNotifier{}
	svc := NewService(db, nil, panickySink{}, n)

	result, err := svc.Grant(context.Background(), participant.ID, award.ID, issuer.ID, "")
	if err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	if !result.OK() {
		t.Fatalf("audit/notifier failures must not mask the grant, got %s", result.Status)
	}
	if n.calls != 1 {
		t.Errorf("expected notifier to be invoked once, got %d", n.calls)
	}

	var count int64
	db.Model(&models.Achievement{}).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 achievement, got %d", count)
	}
}
