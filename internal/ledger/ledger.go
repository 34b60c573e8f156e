// Package ledger reads and maintains the achievement records: who holds
// which award, issued by whom. Rows are created only by the granting
// service; here they are listed, revoked, and cleaned up when a user goes
// away.
package ledger

import (
	"context"
	"errors"

	"github.com/microcred/microcred-api/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("achievement not found")
	ErrForbidden = errors.New("achievement does not belong to that participant")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type ParticipantAwards struct {
	Achievements []models.Achievement
	TotalPoints  int
}

// ListForParticipant returns the participant's achievements newest first,
// ties broken by insertion order, along with their point total.
func (s *Service) ListForParticipant(ctx context.Context, participantID uint) (*ParticipantAwards, error) {
	var achs []models.Achievement
	err := s.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Preload("Award").
		Preload("IssuedBy").
		Order("issued_at desc, id asc").
		Find(&achs).Error
	if err != nil {
		return nil, err
	}

	total := 0
	for _, a := range achs {
		total += a.Award.Points
	}
	return &ParticipantAwards{Achievements: achs, TotalPoints: total}, nil
}

// ListForAward returns the holders of an award ordered by surname, then
// given name.
func (s *Service) ListForAward(ctx context.Context, awardSlug string) ([]models.Achievement, error) {
	var achs []models.Achievement
	err := s.db.WithContext(ctx).
		Joins("JOIN awards ON awards.id = achievements.award_id").
		Joins("JOIN users ON users.id = achievements.participant_id").
		Where("awards.slug = ?", awardSlug).
		Order("users.last_name asc, users.first_name asc").
		Preload("Participant").
		Preload("Award").
		Preload("IssuedBy").
		Find(&achs).Error
	return achs, err
}

// ListIssued returns every achievement, most valuable awards first, then
// holder name. This is the issuer's overview of everything handed out.
func (s *Service) ListIssued(ctx context.Context) ([]models.Achievement, error) {
	var achs []models.Achievement
	err := s.db.WithContext(ctx).
		Joins("JOIN awards ON awards.id = achievements.award_id").
		Joins("JOIN users ON users.id = achievements.participant_id").
		Order("awards.points desc, users.last_name asc, users.first_name asc").
		Preload("Participant").
		Preload("Award").
		Preload("IssuedBy").
		Find(&achs).Error
	return achs, err
}

// GetForParticipantBySlug finds one achievement by participant and award
// slug, for the detail endpoints.
func (s *Service) GetForParticipantBySlug(ctx context.Context, participantID uint, awardSlug string) (*models.Achievement, error) {
	var ach models.Achievement
	err := s.db.WithContext(ctx).
		Joins("JOIN awards ON awards.id = achievements.award_id").
		Where("achievements.participant_id = ? AND awards.slug = ?", participantID, awardSlug).
		Preload("Award").
		Preload("IssuedBy").
		First(&ach).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ach, nil
}

// Revoke hard-deletes an achievement. The expected participant must match
// the row: the caller assembles both from the same request, and a mismatch
// means it is acting on the wrong pair.
func (s *Service) Revoke(ctx context.Context, achievementID, participantID uint) error {
	var ach models.Achievement
	if err := s.db.WithContext(ctx).First(&ach, achievementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if ach.ParticipantID != participantID {
		return ErrForbidden
	}
	return s.db.WithContext(ctx).Delete(&ach).Error
}

// UpdateNote is the only in-place edit an achievement supports.
func (s *Service) UpdateNote(ctx context.Context, achievementID uint, note string) error {
	res := s.db.WithContext(ctx).Model(&models.Achievement{}).
		Where("id = ?", achievementID).
		Update("note", note)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user: their participant achievements go with them,
// achievements they issued keep the row with the issuer nulled. The
// cascade runs inside one transaction as well as being declared on the
// schema, so it does not depend on the sqlite FK pragma.
func (s *Service) DeleteUser(ctx context.Context, userID uint) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Achievement{}).
			Where("issued_by_id = ?", userID).
			Update("issued_by_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("participant_id = ?", userID).Delete(&models.Achievement{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.APIKey{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Association("Roles").Clear(); err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
}
