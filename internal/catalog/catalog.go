// Package catalog manages award definitions: named, slugged badge entries
// with points and eligibility criteria text.
package catalog

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/microcred/microcred-api/internal/models"
	"gorm.io/gorm"
)

var (
	ErrDuplicateSlug = errors.New("that slug is already in use")
	ErrNotFound      = errors.New("award not found")
)

// AssetStore is the icon side of the catalog; implemented by
// storage.IconStore. Rename failures are absorbed by the implementation,
// which returns the prior filename instead.
type AssetStore interface {
	Save(r io.Reader, base string) (string, error)
	Delete(filename string)
	RenameIfSlugChanged(oldFilename, oldSlug, newSlug string) string
}

type Service struct {
	db    *gorm.DB
	icons AssetStore
}

func NewService(db *gorm.DB, icons AssetStore) *Service {
	return &Service{db: db, icons: icons}
}

type AwardInput struct {
	Name        string
	Slug        string
	Description string
	Points      int
	Criteria    string
}

// Create inserts a new award. The slug pre-check gives a friendly error;
// the unique index on awards.slug is the real guard, so a racing insert is
// mapped to the same ErrDuplicateSlug. When an icon payload is supplied it
// is persisted first and removed again if the insert fails.
func (s *Service) Create(ctx context.Context, in AwardInput, icon io.Reader) (*models.Award, error) {
	name := strings.TrimSpace(in.Name)
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}

	var existing models.Award
	err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateSlug
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	award := models.Award{
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Points:      in.Points,
		Criteria:    strings.TrimSpace(in.Criteria),
	}

	if icon != nil && s.icons != nil {
		filename, err := s.icons.Save(icon, slug)
		if err != nil {
			return nil, err
		}
		award.ImageFilename = filename
	}

	if err := s.db.WithContext(ctx).Create(&award).Error; err != nil {
		if award.ImageFilename != "" {
			s.icons.Delete(award.ImageFilename)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateSlug
		}
		return nil, err
	}

	return &award, nil
}

// Edit updates an award's fields. A slug change renames an icon named
// after the old slug, best-effort; a new icon payload replaces the stored
// file; removeIcon deletes it.
func (s *Service) Edit(ctx context.Context, id uint, in AwardInput, icon io.Reader, removeIcon bool) (*models.Award, error) {
	var award models.Award
	if err := s.db.WithContext(ctx).First(&award, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	oldSlug := award.Slug

	award.Name = strings.TrimSpace(in.Name)
	award.Slug = strings.TrimSpace(in.Slug)
	if award.Slug == "" {
		award.Slug = Slugify(award.Name)
	}
	award.Description = strings.TrimSpace(in.Description)
	award.Points = in.Points
	award.Criteria = strings.TrimSpace(in.Criteria)

	var clash int64
	if err := s.db.WithContext(ctx).Model(&models.Award{}).
		Where("slug = ? AND id <> ?", award.Slug, award.ID).
		Count(&clash).Error; err != nil {
		return nil, err
	}
	if clash > 0 {
		return nil, ErrDuplicateSlug
	}

	// Asset work is staged around the row update: a file saved or renamed
	// for this edit is undone when the update fails, and a replaced file is
	// removed only after it commits.
	var savedIcon, staleIcon, renamedFrom string

	if removeIcon && award.ImageFilename != "" && s.icons != nil {
		staleIcon = award.ImageFilename
		award.ImageFilename = ""
	}

	switch {
	case icon != nil && s.icons != nil:
		filename, err := s.icons.Save(icon, award.Slug)
		if err != nil {
			return nil, err
		}
		if award.ImageFilename != filename {
			if award.ImageFilename != "" {
				staleIcon = award.ImageFilename
			}
			savedIcon = filename
		}
		award.ImageFilename = filename
	case award.ImageFilename != "" && s.icons != nil:
		prior := award.ImageFilename
		award.ImageFilename = s.icons.RenameIfSlugChanged(prior, oldSlug, award.Slug)
		if award.ImageFilename != prior {
			renamedFrom = prior
		}
	}

	if err := s.db.WithContext(ctx).Save(&award).Error; err != nil {
		if savedIcon != "" {
			s.icons.Delete(savedIcon)
		}
		if renamedFrom != "" {
			s.icons.RenameIfSlugChanged(award.ImageFilename, award.Slug, oldSlug)
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateSlug
		}
		return nil, err
	}
	if staleIcon != "" {
		s.icons.Delete(staleIcon)
	}

	return &award, nil
}

// SetIcon stores a new icon for the award, replacing any previous file.
func (s *Service) SetIcon(ctx context.Context, id uint, icon io.Reader) (*models.Award, error) {
	var award models.Award
	if err := s.db.WithContext(ctx).First(&award, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	filename, err := s.icons.Save(icon, award.Slug)
	if err != nil {
		return nil, err
	}
	if award.ImageFilename != "" && award.ImageFilename != filename {
		s.icons.Delete(award.ImageFilename)
	}
	award.ImageFilename = filename

	if err := s.db.WithContext(ctx).Save(&award).Error; err != nil {
		return nil, err
	}
	return &award, nil
}

// Delete removes an award and its achievements. The achievements are
// deleted in the same transaction as the award so the FK cascade does not
// depend on the sqlite pragma of the deployment.
func (s *Service) Delete(ctx context.Context, id uint) error {
	var award models.Award
	if err := s.db.WithContext(ctx).First(&award, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("award_id = ?", award.ID).Delete(&models.Achievement{}).Error; err != nil {
			return err
		}
		return tx.Delete(&award).Error
	})
	if err != nil {
		return err
	}

	if award.ImageFilename != "" && s.icons != nil {
		s.icons.Delete(award.ImageFilename)
	}
	return nil
}

// List returns the catalog ordered by points descending, then name.
func (s *Service) List(ctx context.Context) ([]models.Award, error) {
	var awards []models.Award
	err := s.db.WithContext(ctx).Order("points desc, name asc").Find(&awards).Error
	return awards, err
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Award, error) {
	var award models.Award
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&award).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &award, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Award, error) {
	var award models.Award
	if err := s.db.WithContext(ctx).First(&award, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &award, nil
}
