package watchlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenFile(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_AddListRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Add(ctx, "alice", " aapl ", "Apple Inc."))
	require.NoError(t, s.Add(ctx, "alice", "MSFT", ""))
	require.NoError(t, s.Add(ctx, "alice", "AAPL", ""))
	require.NoError(t, s.Add(ctx, "bob", "TSLA", "Tesla"))

	list, err := s.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "AAPL", list[0].Symbol)
	assert.Equal(t, "Apple Inc.", list[0].Name, "empty name must not overwrite")
	assert.Equal(t, "MSFT", list[1].Symbol)

	syms, err := s.Symbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, syms)

	removed, err := s.Remove(ctx, "alice", "aapl")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Remove(ctx, "alice", "aapl")
	require.NoError(t, err)
	assert.False(t, removed)

	list, err = s.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_EmptySymbol(t *testing.T) {
	s := newTestStore(t)
	assert.ErrorIs(t, s.Add(context.Background(), "alice", "  ", ""), ErrEmptySymbol)
	_, err := s.Remove(context.Background(), "alice", "")
	assert.ErrorIs(t, err, ErrEmptySymbol)
}

func TestStore_ListUnknownOwner(t *testing.T) {
	list, err := newTestStore(t).List(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
}
