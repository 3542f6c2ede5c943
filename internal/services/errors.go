// Package services defines the business logic for courts and cases: the case
// state machine, the dialogue log, summarization, header reconciliation,
// action dispatch, and the per-turn deliberation loop.
//
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Case-related errors.
var (
	// ErrCaseNotFound indicates that no case is hosted by the given thread.
	ErrCaseNotFound = errors.New("case not found")

	// ErrInvalidTransition is returned when a status change is not allowed
	// from the case's current status (e.g. closing a closed case).
	ErrInvalidTransition = errors.New("invalid case status transition")

	// ErrNoAccused is returned when a filing or edit names no accused, or
	// more than the configured maximum.
	ErrNoAccused = errors.New("a case needs between one and four accused")

	// ErrEmptyReason is returned when a reason is blank or too long.
	ErrEmptyReason = errors.New("reason is empty or too long")

	// ErrInvalidCaseType is returned for a case type outside the known set.
	ErrInvalidCaseType = errors.New("invalid case type")

	// ErrNotParticipant is returned when the acting user holds no role in
	// the case.
	ErrNotParticipant = errors.New("user is not a participant in this case")

	// ErrCounterCaseTarget is returned when a counter-case does not point at
	// an existing case in which the filer is accused.
	ErrCounterCaseTarget = errors.New("counter-case must answer a case against the filer")

	// ErrInvalidFiling is returned when a filing lacks a thread or an accuser.
	ErrInvalidFiling = errors.New("filing needs a thread and an accuser")

	// ErrCaseExists is returned when a case is filed on a thread that
	// already hosts one.
	ErrCaseExists = errors.New("case already exists")

	// ErrNoHeaderMessage is returned by reconciliation when the case has no
	// header message recorded yet.
	ErrNoHeaderMessage = errors.New("case has no header message")

	// ErrDuplicateTurn is returned when a platform message is already part
	// of the case log.
	ErrDuplicateTurn = errors.New("turn already logged")
)

// Court-related errors.
var (
	// ErrCourtNotFound indicates that the requested court does not exist.
	ErrCourtNotFound = errors.New("court not found")

	// ErrCourtExists is returned when a court already sits in the channel.
	ErrCourtExists = errors.New("court already exists in this channel")

	// ErrInvalidCourt is returned when a court is missing a name or venue.
	ErrInvalidCourt = errors.New("court needs a name, guild, and channel")
)

// Evidence-related errors.
var (
	// ErrEvidenceNotFound indicates that the evidence record does not exist.
	ErrEvidenceNotFound = errors.New("evidence not found")

	// ErrInvalidEvidence is returned when an attachment lacks a filename or url.
	ErrInvalidEvidence = errors.New("evidence needs a filename and url")
)
