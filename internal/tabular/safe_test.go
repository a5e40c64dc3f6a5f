package tabular

import (
	"database/sql"
	"encoding/json"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type isoDate struct{ y, m, d int }

func (d isoDate) String() string {
	return time.Date(d.y, time.Month(d.m), d.d, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

func TestSafeValueConvertsWarehouseTypes(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	price := 12.5
	var missing *float64

	cases := []struct {
		name  string
		input any
		want  any
	}{
		{"nil", nil, nil},
		{"timestamp", ts, "2025-03-01T12:30:00Z"},
		{"timestamp pointer", &ts, "2025-03-01T12:30:00Z"},
		{"civil date", isoDate{2025, 1, 31}, "2025-01-31"},
		{"nan", math.NaN(), nil},
		{"inf", math.Inf(1), nil},
		{"float pointer", &price, 12.5},
		{"nil pointer", missing, nil},
		{"big rat", big.NewRat(5, 2), 2.5},
		{"big int", big.NewInt(42), int64(42)},
		{"null float valid", sql.NullFloat64{Float64: 1.5, Valid: true}, 1.5},
		{"null float invalid", sql.NullFloat64{}, nil},
		{"null string", sql.NullString{String: "Spa", Valid: true}, "Spa"},
		{"json number int", json.Number("7"), int64(7)},
		{"json number float", json.Number("7.25"), 7.25},
		{"bytes", []byte("gym"), "gym"},
		{"int", 3, 3},
		{"float32", float32(0.5), 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SafeValue(tc.input))
		})
	}
}

func TestSafeValueRecursesIntoNestedValues(t *testing.T) {
	got := SafeValue(map[any]any{1: []any{math.NaN(), big.NewRat(1, 4)}})
	assert.Equal(t, map[string]any{"1": []any{nil, 0.25}}, got)
}

func TestRecordsAlwaysSerialize(t *testing.T) {
	table, err := New(
		[]string{"ds", "roi", "revenue", "note"},
		[][]any{
			{time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), math.NaN(), big.NewRat(1001, 10), nil},
			{isoDate{2025, 2, 1}, math.Inf(-1), sql.NullFloat64{}, []byte("ok")},
		},
	)
	require.NoError(t, err)

	encoded, err := json.Marshal(table.Records())
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"ds":"2025-01-01T00:00:00Z","roi":null,"revenue":100.1,"note":null},
		{"ds":"2025-02-01","roi":null,"revenue":null,"note":"ok"}
	]`, string(encoded))

	_, err = json.Marshal(table.Safe())
	require.NoError(t, err)
}

func TestNewRejectsRaggedRows(t *testing.T) {
	_, err := New([]string{"a", "b"}, [][]any{{1}})
	require.Error(t, err)
}

func TestEmptyTableEncodesAsEmptyArrays(t *testing.T) {
	table, err := New(nil, nil)
	require.NoError(t, err)
	assert.True(t, table.Empty())

	encoded, err := json.Marshal(table)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":[],"rows":[]}`, string(encoded))
}

func TestHeadAndValue(t *testing.T) {
	table, err := New([]string{"city", "roi"}, [][]any{{"Paris", 1.0}, {"Rome", 2.0}, {"Oslo", 3.0}})
	require.NoError(t, err)

	head := table.Head(2)
	assert.Equal(t, 2, head.Len())
	assert.Equal(t, 3, table.Head(10).Len())

	v, ok := table.Value(1, "city")
	require.True(t, ok)
	assert.Equal(t, "Rome", v)

	_, ok = table.Value(1, "missing")
	assert.False(t, ok)
}

func TestConversions(t *testing.T) {
	f, ok := Float(big.NewRat(3, 2))
	require.True(t, ok)
	assert.Equal(t, 1.5, f)

	_, ok = Float(math.NaN())
	assert.False(t, ok)

	f, ok = Float("12.75")
	require.True(t, ok)
	assert.Equal(t, 12.75, f)

	n, ok := Int(int64(2024))
	require.True(t, ok)
	assert.Equal(t, 2024, n)

	d, ok := Date(isoDate{2024, 12, 1})
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), d)

	d, ok = Date("2024-12-01T00:00:00Z")
	require.True(t, ok)
	assert.Equal(t, time.December, d.Month())

	_, ok = Date(nil)
	assert.False(t, ok)

	assert.Equal(t, "", String(nil))
	assert.Equal(t, "Spa", String([]byte("Spa")))
}
