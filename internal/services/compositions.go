package services

import (
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/tintharm-api/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type CompositionService struct {
	db *gorm.DB
}

func NewCompositionService(db *gorm.DB) *CompositionService {
	return &CompositionService{db: db}
}

// Create stores a composition, assigning its ID.
func (s *CompositionService) Create(c *models.Composition) error {
	return s.db.Create(c).Error
}

// List returns an owner's compositions, newest first, plus the total count.
// An empty owner lists everything (auth disabled).
func (s *CompositionService) List(owner string, limit, offset int) ([]models.Composition, int64, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.scoped(owner).Model(&models.Composition{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Composition
	if err := s.scoped(owner).Order("created_at DESC").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Get loads one composition. Missing or foreign rows yield gorm.ErrRecordNotFound.
func (s *CompositionService) Get(id, owner string) (*models.Composition, error) {
	var c models.Composition
	if err := s.scoped(owner).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete soft-deletes one composition.
func (s *CompositionService) Delete(id, owner string) error {
	res := s.scoped(owner).Where("id = ?", id).Delete(&models.Composition{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *CompositionService) scoped(owner string) *gorm.DB {
	if owner == "" {
		return s.db
	}
	return s.db.Where("owner = ?", owner)
}
