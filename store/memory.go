package store

import (
	"context"
	"sync"
	"time"

	"HelpLink/tools/errs"
	"HelpLink/tools/ids"
)

// MemStore is an in-memory MessageStore/UserStore for tests and
// single-binary development runs.
type MemStore struct {
	mu       sync.RWMutex
	byConv   map[string][]Message // help_request_id -> messages in insert order
	profiles map[string]UserProfile
	failNext error // when set, the next Insert fails with it

	Clock func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		byConv:   make(map[string][]Message),
		profiles: make(map[string]UserProfile),
		Clock:    time.Now,
	}
}

func (s *MemStore) Insert(ctx context.Context, senderID, helpRequestID, body string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return nil, err
	}
	m := Message{
		ID:            ids.GenerateString(),
		HelpRequestID: helpRequestID,
		SenderID:      senderID,
		Body:          body,
		CreatedAt:     s.Clock(),
	}
	s.byConv[helpRequestID] = append(s.byConv[helpRequestID], m)
	return &m, nil
}

func (s *MemStore) History(ctx context.Context, helpRequestID string, limit int64) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.byConv[helpRequestID]
	if limit > 0 && int64(len(all)) > limit {
		all = all[int64(len(all))-limit:]
	}
	out := make([]Message, len(all))
	copy(out, all)
	return out, nil
}

func (s *MemStore) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, errs.ErrNotFound.WithDetail("user " + userID).Wrap()
	}
	return &p, nil
}

// PutProfile seeds a user profile.
func (s *MemStore) PutProfile(p UserProfile) {
	s.mu.Lock()
	s.profiles[p.ID] = p
	s.mu.Unlock()
}

// FailNextInsert makes the next Insert return err; used to exercise the
// persistence failure path.
func (s *MemStore) FailNextInsert(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}
