// Package handlers maps court API requests onto the services.
//
// This file holds the stable error codes carried in ErrorResponse and the
// translation from service errors to HTTP status, code and a message the
// front-end can show as-is.
package handlers

import (
	"errors"
	"net/http"

	"github.com/tbourn/go-court-backend/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeInvalidFiling     = "invalid_filing"
	ErrCodeCounterCase       = "counter_case_rejected"
	ErrCodeNoHeader          = "header_missing"
)

type apiError struct {
	status int
	code   string
	msg    string
}

// errorTable is checked in order with errors.Is.
var errorTable = []struct {
	err error
	api apiError
}{
	{services.ErrCaseNotFound, apiError{http.StatusNotFound, ErrCodeNotFound, "No case found for this thread."}},
	{services.ErrCourtNotFound, apiError{http.StatusNotFound, ErrCodeNotFound, "JudgeBot is not active in this channel."}},
	{services.ErrEvidenceNotFound, apiError{http.StatusNotFound, ErrCodeNotFound, "No evidence found with the provided ID."}},
	{services.ErrCaseExists, apiError{http.StatusConflict, ErrCodeConflict, "This thread already hosts a case."}},
	{services.ErrCourtExists, apiError{http.StatusConflict, ErrCodeConflict, "JudgeBot is already active in this channel."}},
	{services.ErrInvalidTransition, apiError{http.StatusConflict, ErrCodeInvalidTransition, "The case cannot move to that status from where it stands."}},
	{services.ErrNoHeaderMessage, apiError{http.StatusConflict, ErrCodeNoHeader, "Original case message ID not found."}},
	{services.ErrNotParticipant, apiError{http.StatusForbidden, ErrCodeForbidden, "Only parties to the case may do that."}},
	{services.ErrCounterCaseTarget, apiError{http.StatusUnprocessableEntity, ErrCodeCounterCase, "You can only file a counter-case against a case you are accused in."}},
	{services.ErrInvalidFiling, apiError{http.StatusBadRequest, ErrCodeInvalidFiling, "A filing needs a case thread and an accuser."}},
	{services.ErrNoAccused, apiError{http.StatusBadRequest, ErrCodeInvalidFiling, "Name between one and four accused."}},
	{services.ErrEmptyReason, apiError{http.StatusBadRequest, ErrCodeInvalidFiling, "State your reason in at most 1000 characters."}},
	{services.ErrInvalidCaseType, apiError{http.StatusBadRequest, ErrCodeInvalidFiling, "That case type is not heard by this court."}},
	{services.ErrInvalidCourt, apiError{http.StatusBadRequest, ErrCodeBadRequest, "A court needs a name, a server and a channel."}},
	{services.ErrInvalidEvidence, apiError{http.StatusBadRequest, ErrCodeBadRequest, "Evidence needs a filename and a url."}},
}

// classify maps err to its API form. Unknown errors are internal.
func classify(err error) apiError {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.api
		}
	}
	return apiError{http.StatusInternalServerError, ErrCodeInternal, "Order! There seems to be a disruption in the court's records. Please try again later."}
}
