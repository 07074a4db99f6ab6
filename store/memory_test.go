package store

import (
	"context"
	"testing"
	"time"

	"HelpLink/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreInsertAssignsIDAndTimestamp(t *testing.T) {
	s := NewMemStore()
	now := time.Unix(5000, 0)
	s.Clock = func() time.Time { return now }

	msg, err := s.Insert(context.Background(), "u1", "42", "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "u1", msg.SenderID)
	assert.Equal(t, "42", msg.HelpRequestID)
	assert.Equal(t, now, msg.CreatedAt)
}

func TestMemStoreHistoryOldestFirstWithLimit(t *testing.T) {
	s := NewMemStore()
	for _, body := range []string{"one", "two", "three"} {
		_, err := s.Insert(context.Background(), "u1", "42", body)
		require.NoError(t, err)
	}

	all, err := s.History(context.Background(), "42", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].Body)
	assert.Equal(t, "three", all[2].Body)

	// Limit keeps the most recent entries, still oldest first.
	last, err := s.History(context.Background(), "42", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "two", last[0].Body)
	assert.Equal(t, "three", last[1].Body)
}

func TestMemStoreHistoryIsolatedPerHelpRequest(t *testing.T) {
	s := NewMemStore()
	_, _ = s.Insert(context.Background(), "u1", "42", "a")
	_, _ = s.Insert(context.Background(), "u1", "43", "b")

	msgs, err := s.History(context.Background(), "42", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "a", msgs[0].Body)
}

func TestMemStoreFailNextInsertFiresOnce(t *testing.T) {
	s := NewMemStore()
	s.FailNextInsert(errs.New("boom"))

	_, err := s.Insert(context.Background(), "u1", "42", "hi")
	require.Error(t, err)

	_, err = s.Insert(context.Background(), "u1", "42", "hi")
	assert.NoError(t, err, "failure injection is one-shot")
}

func TestMemStoreGetProfile(t *testing.T) {
	s := NewMemStore()
	s.PutProfile(UserProfile{ID: "u1", DisplayName: "Ada"})

	p, err := s.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", p.DisplayName)

	_, err = s.GetProfile(context.Background(), "nobody")
	require.Error(t, err)
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
}
