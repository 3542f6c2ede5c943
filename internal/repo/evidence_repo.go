package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/domain"
)

// AddEvidence inserts an evidence record; its id is written back into ev.
func AddEvidence(ctx context.Context, db *gorm.DB, ev *domain.Evidence) error {
	return db.WithContext(ctx).Create(ev).Error
}

// GetEvidence fetches one evidence record. A missing id yields (nil, nil).
func GetEvidence(ctx context.Context, db *gorm.DB, id int64) (*domain.Evidence, error) {
	var ev domain.Evidence
	err := db.WithContext(ctx).Where("id = ?", id).First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListEvidence returns all evidence of a case in upload order.
func ListEvidence(ctx context.Context, db *gorm.DB, caseID int64) ([]domain.Evidence, error) {
	var out []domain.Evidence
	err := db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("id asc").
		Find(&out).Error
	return out, err
}

// SetEvidenceSummary fills in the summary produced after upload. It is the
// only column of an evidence row that changes after insertion.
func SetEvidenceSummary(ctx context.Context, db *gorm.DB, id int64, summary string) error {
	res := db.WithContext(ctx).
		Model(&domain.Evidence{}).
		Where("id = ?", id).
		Update("summary", summary)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
