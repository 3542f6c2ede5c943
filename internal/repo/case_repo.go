// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Case model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - GetCase on an unknown id returns (nil, nil): an empty result, not an error.
//   - UpdateCase on an unknown id returns ErrNotFound.
//   - Writes carrying an unknown case type, status or role return
//     ErrInvalidValue before touching the database.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Cases are never deleted; closure is a status change.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/domain"
)

// ErrNotFound is returned when a record targeted by a write does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrInvalidValue is returned when a write carries an enum value outside
// the domain's known set.
var ErrInvalidValue = errors.New("repo: invalid enum value")

// CasePatch lists the Case columns a caller may change. Nil fields are left
// untouched, so a patch never replaces the whole row.
type CasePatch struct {
	Type             *domain.CaseType
	Status           *domain.CaseStatus
	Reason           *string
	Verdict          *string
	Summary          *string
	LastSummaryIndex *int64
	HeaderMessageID  *int64
	CloseReason      *string
	ClosedAt         *time.Time
	UpdatedAt        *time.Time
}

func (p CasePatch) validate() error {
	if p.Type != nil && !p.Type.Valid() {
		return ErrInvalidValue
	}
	if p.Status != nil && !p.Status.Valid() {
		return ErrInvalidValue
	}
	return nil
}

func (p CasePatch) columns() map[string]any {
	cols := map[string]any{}
	if p.Type != nil {
		cols["case_type"] = *p.Type
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.Reason != nil {
		cols["reason"] = *p.Reason
	}
	if p.Verdict != nil {
		cols["verdict"] = *p.Verdict
	}
	if p.Summary != nil {
		cols["summary"] = *p.Summary
	}
	if p.LastSummaryIndex != nil {
		cols["last_summary_index"] = *p.LastSummaryIndex
	}
	if p.HeaderMessageID != nil {
		cols["header_message_id"] = *p.HeaderMessageID
	}
	if p.CloseReason != nil {
		cols["case_close_reason"] = *p.CloseReason
	}
	if p.ClosedAt != nil {
		cols["closed_at"] = *p.ClosedAt
	}
	if p.UpdatedAt != nil {
		cols["updated_at"] = *p.UpdatedAt
	}
	return cols
}

// CreateCase inserts c as-is. The caller supplies the id (the hosting thread)
// and timestamps.
func CreateCase(ctx context.Context, db *gorm.DB, c *domain.Case) error {
	if !c.Type.Valid() || !c.Status.Valid() {
		return ErrInvalidValue
	}
	return db.WithContext(ctx).Create(c).Error
}

// GetCase fetches a case by id. A missing case yields (nil, nil).
func GetCase(ctx context.Context, db *gorm.DB, id int64) (*domain.Case, error) {
	var c domain.Case
	err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCase applies a partial update. An empty patch is a no-op that still
// verifies the case exists.
func UpdateCase(ctx context.Context, db *gorm.DB, id int64, p CasePatch) error {
	if err := p.validate(); err != nil {
		return err
	}
	cols := p.columns()
	if len(cols) == 0 {
		var n int64
		if err := db.WithContext(ctx).Model(&domain.Case{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("id = ?", id).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// StoreSummary replaces the running summary and advances last_summary_index.
// The write is guarded so the index never moves backwards; a stale writer
// gets ErrNotFound.
func StoreSummary(ctx context.Context, db *gorm.DB, id int64, summary string, index int64, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Case{}).
		Where("id = ? AND last_summary_index <= ?", id, index).
		Updates(map[string]any{
			"summary":            summary,
			"last_summary_index": index,
			"updated_at":         at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CaseFilter narrows ListCasesPage and CountCases. Zero values match all.
type CaseFilter struct {
	Status  domain.CaseStatus
	CourtID int64
}

func (f CaseFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.CourtID != 0 {
		q = q.Where("court_id = ?", f.CourtID)
	}
	return q
}

// CountCases returns the number of cases matching f.
func CountCases(ctx context.Context, db *gorm.DB, f CaseFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Case{})).Count(&total).Error
	return total, err
}

// ListCasesPage returns cases matching f, most recently created first.
func ListCasesPage(ctx context.Context, db *gorm.DB, f CaseFilter, offset, limit int) ([]domain.Case, error) {
	var out []domain.Case
	err := f.apply(db.WithContext(ctx)).
		Order("created_at desc").
		Order("id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
