package tools

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse validates a raw call and coerces its arguments into an Action.
// Unknown names yield ErrUnknownAction; missing, blank, or non-numeric id
// arguments yield ErrInvalidArgs. Extra arguments are ignored.
func Parse(c Call) (Action, error) {
	switch c.Name {
	case NameUpdateVerdict:
		id, err := idArg(c, "case_id")
		if err != nil {
			return nil, err
		}
		v, err := textArg(c, "verdict")
		if err != nil {
			return nil, err
		}
		return UpdateVerdict{CaseID: id, Verdict: v}, nil

	case NameAddWitness:
		id, err := idArg(c, "case_id")
		if err != nil {
			return nil, err
		}
		w, err := idArg(c, "witness_id")
		if err != nil {
			return nil, err
		}
		return AddWitness{CaseID: id, WitnessID: w}, nil

	case NameCloseCase:
		id, err := idArg(c, "case_id")
		if err != nil {
			return nil, err
		}
		r, err := textArg(c, "reason")
		if err != nil {
			return nil, err
		}
		return CloseCase{CaseID: id, Reason: r}, nil

	case NameRequestEvidence:
		id, err := idArg(c, "case_id")
		if err != nil {
			return nil, err
		}
		content, err := textArg(c, "content")
		if err != nil {
			return nil, err
		}
		return RequestEvidence{CaseID: id, Content: content}, nil

	case NameReopenCase:
		id, err := idArg(c, "case_id")
		if err != nil {
			return nil, err
		}
		return ReopenCase{CaseID: id}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, c.Name)
}

func textArg(c Call, key string) (string, error) {
	v := strings.TrimSpace(c.Args[key])
	if v == "" {
		return "", fmt.Errorf("%w: %s requires %s", ErrInvalidArgs, c.Name, key)
	}
	return v, nil
}

// idArg accepts a bare snowflake or a user mention ("<@123>", "<@!123>").
func idArg(c Call, key string) (int64, error) {
	raw, err := textArg(c, key)
	if err != nil {
		return 0, err
	}
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "<@"), ">")
	raw = strings.TrimPrefix(raw, "!")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s.%s is not an id", ErrInvalidArgs, c.Name, key)
	}
	return id, nil
}
