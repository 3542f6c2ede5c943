package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/domain"
)

// CreateCourt inserts a court. A second court on the same guild and channel
// violates ux_court_venue.
func CreateCourt(ctx context.Context, db *gorm.DB, c *domain.Court) error {
	return db.WithContext(ctx).Create(c).Error
}

// GetCourt fetches a court by id. A missing court yields (nil, nil).
func GetCourt(ctx context.Context, db *gorm.DB, id int64) (*domain.Court, error) {
	var c domain.Court
	err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CourtAt reports whether a court already sits in the given guild channel.
func CourtAt(ctx context.Context, db *gorm.DB, guildID, channelID int64) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Court{}).
		Where("guild_id = ? AND channel_id = ?", guildID, channelID).
		Count(&n).Error
	return n > 0, err
}

// ListCourts returns every court, oldest first.
func ListCourts(ctx context.Context, db *gorm.DB) ([]domain.Court, error) {
	var out []domain.Court
	err := db.WithContext(ctx).Order("created_at asc").Order("id asc").Find(&out).Error
	return out, err
}

// DeleteCourt removes a court row. Cases keep their court_id.
func DeleteCourt(ctx context.Context, db *gorm.DB, id int64) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Court{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceAssociatedCases swaps a case's outgoing links for ids. Existing
// links are deleted first; the two sets are never merged.
func ReplaceAssociatedCases(ctx context.Context, db *gorm.DB, caseID int64, ids []int64) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("case_id = ?", caseID).Delete(&domain.AssociatedCase{}).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		rows := make([]domain.AssociatedCase, 0, len(ids))
		seen := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			rows = append(rows, domain.AssociatedCase{CaseID: caseID, AssociatedCaseID: id})
		}
		return tx.Create(&rows).Error
	})
}

// AssociatedCaseIDs returns the cases linked from caseID.
func AssociatedCaseIDs(ctx context.Context, db *gorm.DB, caseID int64) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.AssociatedCase{}).
		Where("case_id = ?", caseID).
		Order("associated_case_id").
		Pluck("associated_case_id", &ids).Error
	return ids, err
}
