package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arachne/internal/ir"
	"github.com/roach88/arachne/internal/store"
	"github.com/roach88/arachne/internal/system"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExploreSession_StoresTerminals(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	limits := Limits{MaxDepth: 10, MaxRuns: 2}

	sess, result, err := ExploreSession(ctx, s, NewFixedGenerator("s-1"), abModel(), "models/ab", limits, false)
	require.NoError(t, err)

	assert.Equal(t, "s-1", sess.ID)
	assert.Equal(t, store.StatusComplete, sess.Status)
	assert.Equal(t, result.Digest, sess.Digest)

	stored, err := s.ReadSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, sess, stored)
	assert.Equal(t, ir.MustModelHash(abModel()), stored.ModelHash)
	assert.Equal(t, int64(3), stored.States)
	assert.Equal(t, int64(1), stored.Terminals)

	recs, err := s.ReadSemistates(ctx, "s-1", false)
	require.NoError(t, err)
	require.Len(t, recs, 1, "only terminals by default")
	assert.Equal(t, int64(2), recs[0].Seq)
	assert.True(t, recs[0].Terminal)
	assert.Equal(t, []string{"B", "A"}, roles(recs[0].State))
}

func TestExploreSession_StoresAllStates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, _, err := ExploreSession(ctx, s, NewFixedGenerator("s-1"), abModel(), "", Limits{MaxDepth: 10, MaxRuns: 2}, true)
	require.NoError(t, err)

	recs, err := s.ReadSemistates(ctx, "s-1", false)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	var terminal []int64
	for i, rec := range recs {
		assert.Equal(t, int64(i+1), rec.Seq)
		if rec.Terminal {
			terminal = append(terminal, rec.Seq)
		}
	}
	assert.Equal(t, []int64{2}, terminal)
}

func TestExploreSession_RecordsAbort(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")
	failing := &funcReporter{terminal: func(system.Semistate) error { return boom }}

	sess, _, err := ExploreSession(ctx, s, NewFixedGenerator("s-1"), abModel(), "", Limits{MaxDepth: 10, MaxRuns: 2}, false, failing)
	require.Error(t, err)
	assert.True(t, IsReporterError(err))

	stored, err := s.ReadSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusAborted, stored.Status)
}

func TestExploreSession_SameDigestAcrossSessions(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	gen := NewFixedGenerator("s-1", "s-2")
	limits := DefaultLimits()

	a, _, err := ExploreSession(ctx, s, gen, echoModel(), "", limits, false)
	require.NoError(t, err)
	b, _, err := ExploreSession(ctx, s, gen, echoModel(), "", limits, false)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Digest, b.Digest)
	assert.Equal(t, a.ModelHash, b.ModelHash)
}

func TestExploreSession_CancelledBeforeStart(t *testing.T) {
	s := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sess, _, err := ExploreSession(ctx, s, NewFixedGenerator("s-1"), abModel(), "", Limits{MaxDepth: 10, MaxRuns: 2}, false)
	require.Error(t, err)
	assert.True(t, IsCancelled(err), "got %v", err)
	assert.Equal(t, store.StatusAborted, sess.Status)

	stored, err := s.ReadSession(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusAborted, stored.Status)
	assert.Equal(t, int64(0), stored.States)
}
