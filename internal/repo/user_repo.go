package repo

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-court-backend/internal/domain"
)

// SaveDisplayNames upserts the display name of each user. Blank names and
// non-positive ids are skipped, so an anonymous turn never erases a known
// name.
func SaveDisplayNames(ctx context.Context, db *gorm.DB, names map[int64]string, at time.Time) error {
	rows := make([]domain.User, 0, len(names))
	for id, name := range names {
		name = strings.TrimSpace(name)
		if id <= 0 || name == "" {
			continue
		}
		rows = append(rows, domain.User{ID: id, DisplayName: name, UpdatedAt: at})
	}
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "updated_at"}),
		}).
		Create(&rows).Error
}

// DisplayNames returns the stored names for ids. Users never seen are
// absent from the map.
func DisplayNames(ctx context.Context, db *gorm.DB, ids ...int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.User
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.ID] = u.DisplayName
	}
	return out, nil
}
