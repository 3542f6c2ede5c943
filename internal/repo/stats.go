// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// for conditional responses (weak ETags) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/domain"
)

// CasesStats returns the number of cases matching f and the greatest
// UpdatedAt among them. When nothing matches, count is 0 and latest is nil.
func CasesStats(ctx context.Context, db *gorm.DB, f CaseFilter) (count int64, latest *time.Time, err error) {
	q := f.apply(db.WithContext(ctx).Model(&domain.Case{}))

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// LogsStats returns the number of log entries in a case and the id of the
// newest one. Entries are append-only, so the pair changes on every append.
func LogsStats(ctx context.Context, db *gorm.DB, caseID int64) (count int64, lastID int64, err error) {
	q := db.WithContext(ctx).Model(&domain.LogEntry{}).Where("case_id = ?", caseID)

	if err = q.Count(&count).Error; err != nil {
		return 0, 0, err
	}
	if count == 0 {
		return 0, 0, nil
	}

	var row struct {
		ID int64
	}
	if err = q.Select("id").Order("id DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, 0, err
	}
	return count, row.ID, nil
}
