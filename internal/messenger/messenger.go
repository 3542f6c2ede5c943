// Package messenger is the outbound side of the chat front-end: posting and
// editing messages in a case thread and locking or unlocking the thread.
//
// Delivery is best-effort. Callers log failures and carry on; the stored
// case state is the source of truth and the thread is a projection of it.
package messenger

import (
	"context"
	"errors"
)

// ErrMessageNotFound is returned by EditMessage when the target message no
// longer exists in the thread.
var ErrMessageNotFound = errors.New("message not found")

// Messenger delivers court output to a conversation thread.
type Messenger interface {
	// SendMessage posts text to a thread, optionally as a reply, and returns
	// the new message id.
	SendMessage(ctx context.Context, threadID int64, text string, replyTo *int64) (int64, error)
	// EditMessage replaces the content of an existing message.
	EditMessage(ctx context.Context, threadID, messageID int64, text string) error
	// LockThread archives and locks the thread.
	LockThread(ctx context.Context, threadID int64) error
	// UnlockThread unarchives and unlocks the thread.
	UnlockThread(ctx context.Context, threadID int64) error
}
