package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-court-backend/internal/domain"
)

// AddParticipants inserts one row per user in the given role. Rows that
// already exist are left alone.
func AddParticipants(ctx context.Context, db *gorm.DB, caseID int64, role domain.Role, userIDs ...int64) error {
	if !role.Valid() {
		return ErrInvalidValue
	}
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]domain.Participant, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, domain.Participant{CaseID: caseID, UserID: uid, Role: role})
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// ReplaceParticipants swaps the set of users holding role in a case for
// userIDs. Old rows are deleted before the new ones are inserted; the sets
// are never merged.
func ReplaceParticipants(ctx context.Context, db *gorm.DB, caseID int64, role domain.Role, userIDs []int64) error {
	if !role.Valid() {
		return ErrInvalidValue
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("case_id = ? AND role = ?", caseID, role).
			Delete(&domain.Participant{}).Error; err != nil {
			return err
		}
		return AddParticipants(ctx, tx, caseID, role, userIDs...)
	})
}

// ParticipantIDs returns the users holding role in a case, in insertion
// order.
func ParticipantIDs(ctx context.Context, db *gorm.DB, caseID int64, role domain.Role) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("case_id = ? AND role = ?", caseID, role).
		Order("rowid").
		Pluck("user_id", &ids).Error
	return ids, err
}

// Accuser returns the accuser of a case, or (0, false, nil) when none is
// recorded.
func Accuser(ctx context.Context, db *gorm.DB, caseID int64) (int64, bool, error) {
	var p domain.Participant
	err := db.WithContext(ctx).
		Where("case_id = ? AND role = ?", caseID, domain.RoleAccuser).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return p.UserID, true, nil
}

// IsParticipant reports whether userID holds any role in the case.
func IsParticipant(ctx context.Context, db *gorm.DB, caseID, userID int64) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("case_id = ? AND user_id = ?", caseID, userID).
		Count(&n).Error
	return n > 0, err
}

// HasRole reports whether userID holds role in the case.
func HasRole(ctx context.Context, db *gorm.DB, caseID, userID int64, role domain.Role) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("case_id = ? AND user_id = ? AND role = ?", caseID, userID, role).
		Count(&n).Error
	return n > 0, err
}
