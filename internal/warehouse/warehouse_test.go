package warehouse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancillary-hub/ancillary/internal/tabular"
)

func TestInstrumentPassesThrough(t *testing.T) {
	want := tabular.Table{Columns: []string{"c"}, Rows: [][]any{{1}}}
	inner := Func(func(_ context.Context, sql string) (tabular.Table, error) {
		assert.Equal(t, "SELECT 1", sql)
		return want, nil
	})

	got, err := Instrument("fake", inner).Query(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInstrumentPropagatesErrors(t *testing.T) {
	boom := errors.New("table not found")
	inner := Func(func(context.Context, string) (tabular.Table, error) { return tabular.Table{}, boom })

	_, err := Instrument("fake", inner).Query(context.Background(), "SELECT 1")
	require.ErrorIs(t, err, boom)
}

func TestWithTimeoutSetsDeadline(t *testing.T) {
	inner := Func(func(ctx context.Context, _ string) (tabular.Table, error) {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return tabular.Table{}, nil
	})
	_, err := WithTimeout(time.Second, inner).Query(context.Background(), "SELECT 1")
	require.NoError(t, err)

	same := WithTimeout(0, inner)
	_, isFunc := same.(Func)
	assert.True(t, isFunc)
}
