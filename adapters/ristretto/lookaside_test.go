package ristretto

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codewandler/tokenstore/core/seq"
	"github.com/codewandler/tokenstore/core/token"
)

func TestLookaside(t *testing.T) {
	l, err := New[string](100)
	require.NoError(t, err)
	defer l.Close()

	l.Put(1, "one")
	v, ok := l.Get(1)
	require.True(t, ok)
	require.Equal(t, "one", v)

	l.Delete(1)
	_, ok = l.Get(1)
	require.False(t, ok)

	_, ok = l.Get(2)
	require.False(t, ok)

	s := l.Snapshot()
	require.EqualValues(t, 1, s.Hits)
	require.EqualValues(t, 2, s.Misses)
	require.EqualValues(t, 1, s.Cached)
}

func TestLookaside_BacksSequence(t *testing.T) {
	ctx := t.Context()
	l, err := New[token.Token](1000)
	require.NoError(t, err)
	defer l.Close()

	ts, err := seq.OpenTokens(ctx, seq.NewInMemoryStore[token.Token](), seq.Options[token.Token]{
		Threshold: 2,
		Lookaside: l,
	})
	require.NoError(t, err)

	_, err = ts.Append(ctx, "to be or not to be")
	require.NoError(t, err)

	text, err := ts.Text(ctx)
	require.NoError(t, err)
	require.Equal(t, "to be or not to be", text)
}
