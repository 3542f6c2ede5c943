package services

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-court-backend/internal/repo"
)

// learnNames stores the display names users were last seen under. Blank
// names leave the stored one alone.
func learnNames(ctx context.Context, db *gorm.DB, names map[int64]string) error {
	return repo.SaveDisplayNames(ctx, db, names, time.Now().UTC())
}

// displayNames resolves ids, in order, to their stored display names.
// Users never seen render as a mention.
func displayNames(ctx context.Context, db *gorm.DB, ids ...int64) ([]string, error) {
	known, err := repo.DisplayNames(ctx, db, ids...)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		if name, ok := known[id]; ok {
			out[i] = name
		} else {
			out[i] = Mention(id)
		}
	}
	return out, nil
}

// partyNames collects the names carried by a filing or edit.
func partyNames(parties ...Party) map[int64]string {
	names := make(map[int64]string, len(parties))
	for _, p := range parties {
		names[p.ID] = p.Name
	}
	return names
}

// Mention formats a user reference the chat front-end expands.
func Mention(userID int64) string {
	return "<@" + strconv.FormatInt(userID, 10) + ">"
}
