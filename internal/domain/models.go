// Package domain defines the persistence models for courts, cases, their
// participants, dialogue logs, evidence, and case-to-case links. These types
// are mapped with GORM and form the core data layer of the court backend.
//
// Identifiers are int64 snowflakes issued by the chat platform: a case is
// identified by the thread hosting it, a court by the channel hosting it.
package domain

import (
	"time"
)

// Case is a single filed dispute, hosted by one conversation thread.
//
// Fields:
//   - ID: id of the hosting thread (stable, globally unique).
//   - Type / Status: see CaseType and CaseStatus.
//   - Reason: free-text accusation.
//   - Verdict: advisory until a close finalises it; empty when none issued.
//   - Summary / LastSummaryIndex: running condensation of the dialogue log and
//     the number of log entries it covers (never decreases).
//   - CourtID: owning court.
//   - HeaderMessageID: the canonical rendered header message; 0 until sent.
//   - CloseReason / ClosedAt: historical record of the latest close.
type Case struct {
	ID               int64      `json:"id"                 gorm:"primaryKey;autoIncrement:false"`
	Type             CaseType   `json:"case_type"          gorm:"column:case_type;type:varchar(32);not null"`
	Status           CaseStatus `json:"status"             gorm:"type:varchar(16);not null;index;check:status IN ('open','closed','appealed')"`
	Reason           string     `json:"reason"             gorm:"type:text;not null"`
	Verdict          string     `json:"verdict,omitempty"  gorm:"type:text;not null;default:''"`
	Summary          string     `json:"summary,omitempty"  gorm:"type:text;not null;default:''"`
	LastSummaryIndex int64      `json:"last_summary_index" gorm:"not null;default:0"`
	CourtID          int64      `json:"court_id"           gorm:"not null;index"`
	HeaderMessageID  int64      `json:"header_message_id"  gorm:"not null;default:0"`
	CloseReason      string     `json:"case_close_reason,omitempty" gorm:"column:case_close_reason;type:text;not null;default:''"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"         gorm:"autoUpdateTime:false"`
}

// TableName returns the database table name for Case.
func (Case) TableName() string { return "cases" }

// Participant binds a user to a case in a role. The (case, user, role)
// triple is the identity; the same user may hold several roles.
type Participant struct {
	CaseID int64 `json:"case_id" gorm:"primaryKey;autoIncrement:false"`
	UserID int64 `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	Role   Role  `json:"role"    gorm:"primaryKey;type:varchar(16);check:role IN ('accuser','accused','witness','judge')"`
}

// TableName returns the database table name for Participant.
func (Participant) TableName() string { return "participants" }

// LogEntry is one dialogue turn in a case. Entries are append-only and
// ordered by their autoincrement ID, which equals insertion order.
//
// Fields:
//   - MessageID: platform message id (unique within a case).
//   - ReferenceID: id of the message this one replies to, if any.
//   - Summary: optional per-entry condensation.
//   - IsJudge: true for replies authored by the system.
type LogEntry struct {
	ID          int64     `json:"id"                     gorm:"primaryKey;autoIncrement"`
	CaseID      int64     `json:"case_id"                gorm:"not null;index:idx_case_logs,priority:1;uniqueIndex:ux_case_message,priority:1"`
	Timestamp   time.Time `json:"timestamp"              gorm:"not null"`
	AuthorID    int64     `json:"author_id"              gorm:"not null"`
	Speaker     string    `json:"speaker"                gorm:"type:varchar(128);not null"`
	Content     string    `json:"message"                gorm:"type:text;not null"`
	MessageID   int64     `json:"message_id"             gorm:"not null;uniqueIndex:ux_case_message,priority:2"`
	ReferenceID *int64    `json:"message_reference_id,omitempty" gorm:"column:message_reference_id"`
	Summary     string    `json:"summary,omitempty"      gorm:"type:text;not null;default:''"`
	IsJudge     bool      `json:"is_judge"               gorm:"not null;default:false"`

	Case Case `json:"-" gorm:"foreignKey:CaseID;references:ID;constraint:OnUpdate:CASCADE"`
}

// TableName returns the database table name for LogEntry.
func (LogEntry) TableName() string { return "log_entries" }

// Evidence is a file attached to a case. Summary is filled in after upload
// by an external file summarizer and may stay empty.
type Evidence struct {
	ID          int64     `json:"id"          gorm:"primaryKey;autoIncrement"`
	CaseID      int64     `json:"case_id"     gorm:"not null;index"`
	Filename    string    `json:"filename"    gorm:"type:varchar(255);not null"`
	URL         string    `json:"url"         gorm:"type:text;not null"`
	UploaderID  int64     `json:"uploader_id" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text;not null;default:''"`
	Summary     string    `json:"summary"     gorm:"type:text;not null;default:''"`
	CreatedAt   time.Time `json:"created_at"`

	Case Case `json:"-" gorm:"foreignKey:CaseID;references:ID;constraint:OnUpdate:CASCADE"`
}

// TableName returns the database table name for Evidence.
func (Evidence) TableName() string { return "evidences" }

// Court is a venue channel inside a guild. Cases reference their court by
// id; the court keeps no back-reference.
type Court struct {
	ID          int64     `json:"id"          gorm:"primaryKey;autoIncrement:false"`
	Name        string    `json:"name"        gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text;not null;default:''"`
	ChannelID   int64     `json:"channel_id"  gorm:"not null;uniqueIndex:ux_court_venue,priority:2"`
	GuildID     int64     `json:"guild_id"    gorm:"not null;uniqueIndex:ux_court_venue,priority:1"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName returns the database table name for Court.
func (Court) TableName() string { return "courts" }

// AssociatedCase is a directed link from a case to a related one (the case a
// counter-case answers, or an appeal's original).
type AssociatedCase struct {
	CaseID           int64 `json:"case_id"            gorm:"primaryKey;autoIncrement:false"`
	AssociatedCaseID int64 `json:"associated_case_id" gorm:"primaryKey;autoIncrement:false"`
}

// TableName returns the database table name for AssociatedCase.
func (AssociatedCase) TableName() string { return "associated_cases" }

// User is the display name a platform user was last seen under. Headers
// and log speakers render from it, so a restart renders the same text.
type User struct {
	ID          int64     `json:"id"           gorm:"primaryKey;autoIncrement:false"`
	DisplayName string    `json:"display_name" gorm:"not null"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }
