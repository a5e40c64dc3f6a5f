package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Float reads a numeric warehouse value. Missing, non-numeric and
// non-finite values report false.
func Float(value any) (float64, bool) {
	switch v := SafeValue(value).(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Int reads an integral warehouse value, truncating floats.
func Int(value any) (int, bool) {
	f, ok := Float(value)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func String(value any) string {
	switch v := SafeValue(value).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Date reads a DATE, DATETIME or TIMESTAMP warehouse value.
func Date(value any) (time.Time, bool) {
	if t, ok := value.(time.Time); ok {
		return t, !t.IsZero()
	}
	raw := strings.TrimSpace(String(value))
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
