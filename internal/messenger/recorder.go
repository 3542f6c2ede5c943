package messenger

import (
	"context"
	"sync"
)

// Message is one message held by a Recorder.
type Message struct {
	ID      int64
	Thread  int64
	Text    string
	ReplyTo *int64
	Edits   int
}

// Recorder is an in-memory Messenger. It backs dry-run mode and tests.
type Recorder struct {
	mu      sync.Mutex
	nextID  int64
	byID    map[int64]*Message
	order   []int64
	locked  map[int64]bool
	lockOps []LockOp
}

// LockOp records a LockThread or UnlockThread call.
type LockOp struct {
	Thread int64
	Locked bool
}

// NewRecorder returns an empty recorder. Message ids start at firstID.
func NewRecorder(firstID int64) *Recorder {
	return &Recorder{
		nextID: firstID,
		byID:   map[int64]*Message{},
		locked: map[int64]bool{},
	}
}

func (r *Recorder) SendMessage(_ context.Context, threadID int64, text string, replyTo *int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	m := &Message{ID: id, Thread: threadID, Text: text}
	if replyTo != nil {
		v := *replyTo
		m.ReplyTo = &v
	}
	r.byID[id] = m
	r.order = append(r.order, id)
	return id, nil
}

func (r *Recorder) EditMessage(_ context.Context, threadID, messageID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[messageID]
	if !ok || m.Thread != threadID {
		return ErrMessageNotFound
	}
	m.Text = text
	m.Edits++
	return nil
}

func (r *Recorder) LockThread(_ context.Context, threadID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked[threadID] = true
	r.lockOps = append(r.lockOps, LockOp{Thread: threadID, Locked: true})
	return nil
}

func (r *Recorder) UnlockThread(_ context.Context, threadID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked[threadID] = false
	r.lockOps = append(r.lockOps, LockOp{Thread: threadID, Locked: false})
	return nil
}

// Delete removes a message, as if a moderator deleted it.
func (r *Recorder) Delete(messageID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, messageID)
}

// Get returns a copy of a message.
func (r *Recorder) Get(messageID int64) (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[messageID]
	if !ok {
		return Message{}, false
	}
	return *m, true
}

// Thread returns copies of the surviving messages of a thread in send order.
func (r *Recorder) Thread(threadID int64) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, id := range r.order {
		if m, ok := r.byID[id]; ok && m.Thread == threadID {
			out = append(out, *m)
		}
	}
	return out
}

// Locked reports the current lock state of a thread.
func (r *Recorder) Locked(threadID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked[threadID]
}

// LockOps returns every lock and unlock call in order.
func (r *Recorder) LockOps() []LockOp {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LockOp(nil), r.lockOps...)
}
