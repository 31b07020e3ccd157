package store

import (
	"context"
	"testing"
	"time"

	"ai-diagnosis-be/pkg/followup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStoreNilClient(t *testing.T) {
	s := NewSnapshotStore(nil, time.Hour)
	ctx := context.Background()

	mgr := followup.NewManager(followup.DefaultNegativeBoostMultiplier, true)
	session := NewSession("s1", mgr)

	// Without Redis all operations are no-ops: saves succeed, loads miss.
	require.NoError(t, s.Save(ctx, session.Snapshot()))

	snap, found, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, snap)

	assert.NoError(t, s.Delete(ctx, "s1"))
}

func TestSessionSnapshotRoundTrip(t *testing.T) {
	mgr := followup.NewManager(-0.5, true)
	mgr.AddQuestions([]followup.Template{{
		ID:       "q1",
		Text:     "Do you have a fever?",
		Severity: 3,
		Boosts:   []followup.Boost{{Condition: "flu", Value: 0.3}},
	}}, "flu")
	require.NoError(t, mgr.RecordAnswer("q1", "yes", time.Now()))

	session := NewSession("s1", mgr)
	snap := session.Snapshot()

	restored := Restore(snap, followup.NewManager(followup.DefaultNegativeBoostMultiplier, true))

	assert.Equal(t, session.ID, restored.ID)
	assert.Equal(t, session.CreatedAt, restored.CreatedAt)
	assert.Equal(t, mgr.DiseaseBoosts(), restored.FollowUps.DiseaseBoosts())
	assert.Equal(t, mgr.NegativeBoostMultiplier(), restored.FollowUps.NegativeBoostMultiplier())
}

func TestRestoreZeroCreatedAt(t *testing.T) {
	restored := Restore(SessionSnapshot{ID: "s1"}, followup.NewManager(followup.DefaultNegativeBoostMultiplier, true))
	assert.False(t, restored.CreatedAt.IsZero())
}

func TestTouchAdvancesLastActive(t *testing.T) {
	session := NewSession("s1", followup.NewManager(followup.DefaultNegativeBoostMultiplier, true))
	before := session.LastActiveAt
	time.Sleep(time.Millisecond)
	session.Touch()
	assert.True(t, session.LastActiveAt.After(before))
}
