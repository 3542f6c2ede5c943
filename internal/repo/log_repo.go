package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/domain"
)

// AppendLog inserts e at the end of its case's log. The assigned id is
// written back into e. Log entries are never updated or deleted.
func AppendLog(ctx context.Context, db *gorm.DB, e *domain.LogEntry) error {
	return db.WithContext(ctx).Create(e).Error
}

// CountLogs returns the number of log entries in a case.
func CountLogs(ctx context.Context, db *gorm.DB, caseID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.LogEntry{}).
		Where("case_id = ?", caseID).
		Count(&total).Error
	return total, err
}

// RecentLogs returns the last n entries of a case in chronological order.
func RecentLogs(ctx context.Context, db *gorm.DB, caseID int64, n int) ([]domain.LogEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	var out []domain.LogEntry
	err := db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("id desc").
		Limit(n).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ListLogsPage returns a page of a case's log, oldest first.
func ListLogsPage(ctx context.Context, db *gorm.DB, caseID int64, offset, limit int) ([]domain.LogEntry, error) {
	var out []domain.LogEntry
	err := db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// HasMessage reports whether a platform message is already logged in a case.
func HasMessage(ctx context.Context, db *gorm.DB, caseID, messageID int64) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.LogEntry{}).
		Where("case_id = ? AND message_id = ?", caseID, messageID).
		Count(&n).Error
	return n > 0, err
}
