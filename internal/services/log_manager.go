package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/domain"
	"github.com/tbourn/go-court-backend/internal/repo"
)

// LogManager is the append-only dialogue log of each case.
type LogManager struct {
	DB *gorm.DB
}

// Append adds e to the end of its case's log. A message id already present
// in that case yields ErrDuplicateTurn and nothing is written.
func (l *LogManager) Append(ctx context.Context, e *domain.LogEntry) error {
	dup, err := repo.HasMessage(ctx, l.DB, e.CaseID, e.MessageID)
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicateTurn
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return repo.AppendLog(ctx, l.DB, e)
}

// Count returns the number of entries in a case's log.
func (l *LogManager) Count(ctx context.Context, caseID int64) (int64, error) {
	return repo.CountLogs(ctx, l.DB, caseID)
}

// Window returns the last n entries, oldest first.
func (l *LogManager) Window(ctx context.Context, caseID int64, n int) ([]domain.LogEntry, error) {
	return repo.RecentLogs(ctx, l.DB, caseID, n)
}

// Page returns a page of the log (1-based) and the total entry count.
func (l *LogManager) Page(ctx context.Context, caseID int64, page, pageSize int) ([]domain.LogEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	total, err := repo.CountLogs(ctx, l.DB, caseID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.LogEntry{}, 0, nil
	}
	items, err := repo.ListLogsPage(ctx, l.DB, caseID, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Transcript renders entries as "speaker: message" lines.
func Transcript(entries []domain.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, fmt.Sprintf("%s: %s", e.Speaker, strings.TrimSpace(e.Content)))
	}
	return out
}
