package logstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_DefaultLimitAndOrdering(t *testing.T) {
	s := New()
	base := time.Now().UTC()
	s.Append("fn", Entry{Timestamp: base, Level: "info", Message: "first"})
	s.Append("fn", Entry{Timestamp: base.Add(time.Second), Level: "info", Message: "second"})

	page := s.Query(context.Background(), "fn", Query{})
	require.Len(t, page.Logs, 2)
	assert.Equal(t, "first", page.Logs[0].Message)
	assert.Equal(t, "second", page.Logs[1].Message)
	assert.False(t, page.HasMore)
}

func TestQuery_FiltersBySinceAndLevel(t *testing.T) {
	s := New()
	base := time.Now().UTC()
	s.Append("fn", Entry{Timestamp: base, Level: "info", Message: "old"})
	s.Append("fn", Entry{Timestamp: base.Add(time.Minute), Level: "error", Message: "recent-error"})
	s.Append("fn", Entry{Timestamp: base.Add(time.Minute), Level: "info", Message: "recent-info"})

	page := s.Query(context.Background(), "fn", Query{Since: base.Format(time.RFC3339), Level: "error"})
	require.Len(t, page.Logs, 1)
	assert.Equal(t, "recent-error", page.Logs[0].Message)
}

func TestQuery_CapsLimitAndSetsHasMore(t *testing.T) {
	s := New()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		s.Append("fn", Entry{Timestamp: base.Add(time.Duration(i) * time.Second), Message: "x"})
	}

	page := s.Query(context.Background(), "fn", Query{Limit: 2})
	assert.Len(t, page.Logs, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)
}

func TestRing_EvictsOldestBeyondCapacity(t *testing.T) {
	s := New()
	for i := 0; i < ringSize+10; i++ {
		s.Append("fn", Entry{Timestamp: time.Now().UTC(), Message: "x"})
	}
	page := s.Query(context.Background(), "fn", Query{Limit: ringSize})
	assert.Len(t, page.Logs, ringSize)
}

func TestSubscribe_ReceivesAppendedEntry(t *testing.T) {
	s := New()
	ch := make(chan Entry, 1)
	unsubscribe := s.Subscribe("fn", ch)
	defer unsubscribe()

	s.Append("fn", Entry{Message: "live"})

	select {
	case e := <-ch:
		assert.Equal(t, "live", e.Message)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscribed entry")
	}
}

func TestSubscribe_UnsubscribeStopsDelivery(t *testing.T) {
	s := New()
	ch := make(chan Entry, 1)
	unsubscribe := s.Subscribe("fn", ch)
	unsubscribe()

	s.Append("fn", Entry{Message: "after-unsubscribe"})

	select {
	case <-ch:
		t.Fatal("expected no delivery after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}
