package idx_test

import (
	"sort"
	"testing"
	"time"

	"github.com/jobassist/jobassist/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()
	require.False(t, id.IsZero())

	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestParse_Invalid(t *testing.T) {
	for _, s := range []string{"", "   ", "not-a-ulid", "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3Z"} {
		_, err := idx.Parse(s)
		require.ErrorIs(t, err, idx.ErrInvalid, s)
	}
}

func TestOrdering_SameMillisecond(t *testing.T) {
	tm := time.Unix(1700000000, 0).UTC()
	ids := make([]string, 0, 100)
	for range 100 {
		ids = append(ids, idx.NewAt(tm).String())
	}
	require.True(t, sort.StringsAreSorted(ids), "monotonic entropy keeps ids ordered")
}

func TestTimeExtraction(t *testing.T) {
	tm := time.Unix(1700000000, 0).UTC()
	require.WithinDuration(t, tm, idx.NewAt(tm).Time(), time.Millisecond)
	require.True(t, idx.Zero.Time().IsZero())
}
