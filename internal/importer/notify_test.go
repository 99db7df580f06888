package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestBatcherAggregatesPerOwner(t *testing.T) {
	b := NewNotificationBatcher()
	for i := 0; i < 5; i++ {
		b.Add("owner-a")
	}
	b.Add("owner-b")
	b.Add("") // unassigned rows notify nobody

	counts := b.Counts()
	assert.Equal(t, map[string]int{"owner-a": 5, "owner-b": 1}, counts)
}

func TestBatcherFlushFirstSeenOrder(t *testing.T) {
	st := newMockStore()
	b := NewNotificationBatcher()
	b.Add("owner-b")
	b.Add("owner-a")
	b.Add("owner-b")

	sent := b.Flush(context.Background(), st, rate.NewLimiter(rate.Inf, 1))
	assert.Equal(t, 2, sent)
	require.Len(t, st.emits, 2)
	assert.Equal(t, mockEmit{ownerID: "owner-b", count: 2}, st.emits[0])
	assert.Equal(t, mockEmit{ownerID: "owner-a", count: 1}, st.emits[1])
}

func TestBatcherFlushToleratesSinkFailure(t *testing.T) {
	st := newMockStore()
	st.emitErr = errors.New("sink down")
	b := NewNotificationBatcher()
	b.Add("owner-a")
	b.Add("owner-b")

	sent := b.Flush(context.Background(), st, rate.NewLimiter(rate.Inf, 1))
	assert.Equal(t, 0, sent)
}

func TestBatcherFlushStopsOnCancelledContext(t *testing.T) {
	st := newMockStore()
	b := NewNotificationBatcher()
	b.Add("owner-a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sent := b.Flush(ctx, st, rate.NewLimiter(1, 1))
	assert.Equal(t, 0, sent)
	assert.Empty(t, st.emits)
}
