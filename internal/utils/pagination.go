// Package utils holds small parsing helpers shared by the HTTP layer.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as an int, returning def when s is empty or invalid.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Paginate reads page and page_size query values. Page is at least 1; size
// falls back to def when missing or non-positive and is capped at max.
func Paginate(pageStr, sizeStr string, def, max int) (page, size int) {
	page = AtoiDefault(pageStr, 1)
	if page < 1 {
		page = 1
	}
	size = AtoiDefault(sizeStr, def)
	if size < 1 {
		size = def
	}
	if size > max {
		size = max
	}
	return page, size
}

// ParseID parses a positive platform id (case, court, user, evidence).
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
