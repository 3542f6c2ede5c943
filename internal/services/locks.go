package services

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// CaseLocks serializes work per case id. Different cases proceed in
// parallel; entries are dropped once nobody holds or waits on them.
type CaseLocks struct {
	mu    sync.Mutex
	slots map[int64]*caseSlot
}

type caseSlot struct {
	sem  *semaphore.Weighted
	refs int
}

// NewCaseLocks returns an empty lock table.
func NewCaseLocks() *CaseLocks {
	return &CaseLocks{slots: map[int64]*caseSlot{}}
}

// Acquire blocks until the case is free or ctx is done. The returned func
// releases the lock and must be called exactly once.
func (l *CaseLocks) Acquire(ctx context.Context, caseID int64) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[caseID]
	if !ok {
		s = &caseSlot{sem: semaphore.NewWeighted(1)}
		l.slots[caseID] = s
	}
	s.refs++
	l.mu.Unlock()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		l.drop(caseID, s)
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			s.sem.Release(1)
			l.drop(caseID, s)
		})
	}, nil
}

func (l *CaseLocks) drop(caseID int64, s *caseSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, caseID)
	}
}

// Len reports how many cases currently have holders or waiters.
func (l *CaseLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
