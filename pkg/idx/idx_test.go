package idx_test

import (
	"testing"
	"time"

	"github.com/photostream/backend/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewProducesUniqueSortedIDs(t *testing.T) {
	t.Parallel()

	a := idx.New()
	b := idx.New()

	require.NotEqual(t, a, b)
	require.Len(t, a.String(), 26)
	// Monotonic entropy within the same millisecond still sorts.
	require.Less(t, a.String(), b.String())
}

func TestParse(t *testing.T) {
	t.Parallel()

	id := idx.New()
	parsed, err := idx.Parse(" " + id.String() + " ")
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	for _, bad := range []string{"", "nope", "0000000000000000000000000!"} {
		_, err := idx.Parse(bad)
		require.ErrorIs(t, err, idx.ErrInvalid, bad)
	}
}

func TestIDTime(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC().Truncate(time.Millisecond)
	id := idx.New()
	after := time.Now().UTC()

	ts := id.Time()
	require.False(t, ts.Before(before))
	require.False(t, ts.After(after.Add(time.Millisecond)))

	require.True(t, idx.Zero.Time().IsZero())
}
