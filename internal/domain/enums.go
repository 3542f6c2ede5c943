package domain

import (
	"errors"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

// CaseType classifies a filed case.
type CaseType string

const (
	CaseCivil       CaseType = "Civil"
	CaseCriminal    CaseType = "Criminal"
	CaseCommunity   CaseType = "Community"
	CaseCounter     CaseType = "Counter-case"
	CaseOther       CaseType = "Other"
	CaseFamily      CaseType = "Family"
	CaseTraffic     CaseType = "Traffic"
	CaseSmallClaims CaseType = "Small-Claims"
)

// CaseTypes lists every accepted case type in display order.
var CaseTypes = []CaseType{
	CaseCivil, CaseCriminal, CaseCommunity, CaseFamily, CaseTraffic,
	CaseSmallClaims, CaseCounter, CaseOther,
}

// ErrUnknownCaseType is returned by ParseCaseType for unrecognised input.
var ErrUnknownCaseType = errors.New("unknown case type")

// fold maps s to a form where case and character width no longer matter,
// so "ＣＩＶＩＬ" and "civil" compare equal. A cases.Caser holds state, so
// each call builds its own.
func fold(s string) string {
	return cases.Fold().String(width.Fold.String(s))
}

// ParseCaseType accepts input in any case or character width, with
// spaces, dashes or underscores as separators ("small claims",
// "COUNTER_CASE").
func ParseCaseType(s string) (CaseType, error) {
	norm := strings.NewReplacer("_", " ", "-", " ").Replace(fold(s))
	norm = strings.Join(strings.Fields(norm), "-")
	if norm == "" {
		return "", ErrUnknownCaseType
	}
	for _, ct := range CaseTypes {
		if fold(string(ct)) == norm {
			return ct, nil
		}
	}
	return "", ErrUnknownCaseType
}

// Valid reports whether t is one of CaseTypes.
func (t CaseType) Valid() bool {
	for _, ct := range CaseTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// CaseStatus is the lifecycle state of a case.
type CaseStatus string

const (
	StatusOpen   CaseStatus = "open"
	StatusClosed CaseStatus = "closed"
	// StatusAppealed is reserved for a case that is itself under appellate
	// review. No transition enters or leaves it.
	StatusAppealed CaseStatus = "appealed"
)

// Valid reports whether s is a known status.
func (s CaseStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusAppealed:
		return true
	}
	return false
}

// Role is a participant's part in a case.
type Role string

const (
	RoleAccuser Role = "accuser"
	RoleAccused Role = "accused"
	RoleWitness Role = "witness"
	RoleJudge   Role = "judge"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAccuser, RoleAccused, RoleWitness, RoleJudge:
		return true
	}
	return false
}
