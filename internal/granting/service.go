// Package granting implements the role-gated achievement-granting
// workflow: validate references, check the ledger, evaluate eligibility
// and commit the grant, with the (participant, award) unique index as the
// at-most-once guarantee.
package granting

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/microcred/microcred-api/internal/audit"
	"github.com/microcred/microcred-api/internal/models"
	"github.com/microcred/microcred-api/internal/notifier"
	"gorm.io/gorm"
)

type Status string

const (
	StatusGranted          Status = "granted"
	StatusAlreadyGranted   Status = "already_granted"
	StatusInvalidReference Status = "invalid_reference"
	StatusNotEligible      Status = "not_eligible"
)

// Result is the domain outcome of a grant attempt. The named statuses are
// expected conditions and carry no error; genuinely unexpected failures
// are returned as errors alongside a zero Result.
type Result struct {
	Status      Status
	Message     string
	Achievement *models.Achievement
}

func (r Result) OK() bool { return r.Status == StatusGranted }

type Service struct {
	db       *gorm.DB
	policy   Policy
	sink     audit.Sink
	notifier notifier.Notifier
}

// NewService wires the granting workflow. A nil policy defaults to
// AllowAll; sink and notifier may be nil.
func NewService(db *gorm.DB, policy Policy, sink audit.Sink, n notifier.Notifier) *Service {
	if policy == nil {
		policy = AllowAll{}
	}
	return &Service{db: db, policy: policy, sink: sink, notifier: n}
}

// Grant issues awardID to participantID on behalf of issuedByID.
//
// Exactly one of two concurrent grants for the same pair succeeds: the
// pre-check only produces the friendly message, the unique index on
// (participant_id, award_id) enforces the invariant, and its violation is
// remapped to StatusAlreadyGranted.
func (s *Service) Grant(ctx context.Context, participantID, awardID, issuedByID uint, note string) (Result, error) {
	var participant, issuer models.User
	var award models.Award

	if err := s.db.WithContext(ctx).First(&participant, participantID).Error; err != nil {
		return s.invalidRef(err)
	}
	if err := s.db.WithContext(ctx).First(&award, awardID).Error; err != nil {
		return s.invalidRef(err)
	}
	if err := s.db.WithContext(ctx).First(&issuer, issuedByID).Error; err != nil {
		return s.invalidRef(err)
	}

	var existing models.Achievement
	err := s.db.WithContext(ctx).
		Where("participant_id = ? AND award_id = ?", participantID, awardID).
		First(&existing).Error
	if err == nil {
		return Result{Status: StatusAlreadyGranted, Message: "Participant already has this award."}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Result{}, err
	}

	eligible, reason, err := s.evaluate(&participant, &award)
	if err != nil {
		return Result{}, err
	}
	if !eligible {
		return Result{Status: StatusNotEligible, Message: "Not eligible: " + reason}, nil
	}

	ach := models.Achievement{
		ParticipantID: participantID,
		AwardID:       awardID,
		IssuedByID:    &issuedByID,
		IssuedAt:      time.Now().UTC(),
		Note:          note,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&ach).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost the race between pre-check and insert
			return Result{Status: StatusAlreadyGranted, Message: "Participant already has this award."}, nil
		}
		return Result{}, err
	}

	s.recordAudit(map[string]any{
		"participant_id": participantID,
		"award_id":       awardID,
		"issued_by_id":   issuedByID,
		"note":           note,
	})

	if s.notifier != nil {
		if err := s.notifier.NotifyGrant(participant, award); err != nil {
			log.Printf("Failed to send grant notification: %v", err)
		}
	}

	return Result{Status: StatusGranted, Message: "Award granted", Achievement: &ach}, nil
}

// recordAudit emits the granting event. The sink is a best-effort side
// channel: whatever it does, the committed grant stands.
func (s *Service) recordAudit(payload map[string]any) {
	if s.sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Audit sink failed: %v", r)
		}
	}()
	s.sink.Record("award.granted", payload)
}

func (s *Service) invalidRef(err error) (Result, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Result{Status: StatusInvalidReference, Message: "Invalid participant, award, or issuer."}, nil
	}
	return Result{}, err
}

// evaluate shields the grant from a misbehaving policy: a panic is
// converted into an unexpected failure instead of a specific recovery.
func (s *Service) evaluate(participant *models.User, award *models.Award) (eligible bool, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			eligible = false
			err = fmt.Errorf("eligibility policy panicked: %v", r)
		}
	}()
	eligible, reason = s.policy.Eligible(participant, award)
	return eligible, reason, nil
}
