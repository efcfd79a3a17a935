package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleState_Order(t *testing.T) {
	ordered := []LifecycleState{
		StateAssigned,
		StateReadyToGen,
		StateReadyToPost,
		StatePublished,
		StateCollecting,
		StateDone,
	}

	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Order(), ordered[i-1].Order(),
			"%s should come after %s", ordered[i], ordered[i-1])
	}

	assert.Equal(t, -1, StateError.Order())
	assert.Equal(t, -1, LifecycleState("bogus").Order())
}

func TestLifecycleState_Terminal(t *testing.T) {
	assert.True(t, StateDone.Terminal())
	assert.True(t, StateError.Terminal())
	assert.False(t, StatePublished.Terminal())
	assert.False(t, StateCollecting.Terminal())
}

func TestHorizon_Offset(t *testing.T) {
	assert.Equal(t, time.Hour, Horizon1h.Offset())
	assert.Equal(t, 24*time.Hour, Horizon1d.Offset())
	assert.Equal(t, 7*24*time.Hour, Horizon7d.Offset())

	// Horizons are returned in due order
	horizons := AllHorizons()
	require.Len(t, horizons, 3)
	for i := 1; i < len(horizons); i++ {
		assert.Greater(t, horizons[i].Offset(), horizons[i-1].Offset())
	}
}

func TestNewPostID_Deterministic(t *testing.T) {
	id1 := NewPostID("t-001", "value_kim")
	id2 := NewPostID("t-001", "value_kim")
	assert.Equal(t, id1, id2, "same pair must always produce the same ID")

	assert.NotEqual(t, id1, NewPostID("t-001", "momo_lee"))
	assert.NotEqual(t, id1, NewPostID("t-002", "value_kim"))
}

func TestNewPostRecord(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	rec := NewPostRecord("t-001", "value_kim", now)

	assert.Equal(t, "t-001-value_kim", rec.PostID)
	assert.Equal(t, StateAssigned, rec.State)
	assert.Nil(t, rec.PublishedAt)

	for _, h := range AllHorizons() {
		assert.Equal(t, CollectionPending, rec.CollectionStatusFor(h))
	}
	assert.False(t, rec.AllHorizonsTerminal())
}

func TestPostRecord_AllHorizonsTerminal(t *testing.T) {
	rec := NewPostRecord("t-001", "value_kim", time.Now())

	rec.Collection[Horizon1h] = CollectionDone
	rec.Collection[Horizon1d] = CollectionError
	assert.False(t, rec.AllHorizonsTerminal(), "7d still pending")

	rec.Collection[Horizon7d] = CollectionDone
	assert.True(t, rec.AllHorizonsTerminal())
}

func TestPostRecord_CollectionStatusFor_NilMap(t *testing.T) {
	rec := &PostRecord{}
	assert.Equal(t, CollectionPending, rec.CollectionStatusFor(Horizon1h))
}
