package tabular

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"time"
)

// SafeValue maps a warehouse value onto nil, bool, string, an integer or a
// finite float64, or slices and string-keyed maps of those. Timestamps and
// dates become ISO-8601 strings; NaN and infinities become nil.
func SafeValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v
	case float32:
		return finite(float64(v))
	case float64:
		return finite(v)
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case *big.Rat:
		if v == nil {
			return nil
		}
		f, _ := v.Float64()
		return finite(f)
	case *big.Int:
		if v == nil {
			return nil
		}
		if v.IsInt64() {
			return v.Int64()
		}
		f, _ := new(big.Float).SetInt(v).Float64()
		return finite(f)
	case *big.Float:
		if v == nil {
			return nil
		}
		f, _ := v.Float64()
		return finite(f)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		if f, err := v.Float64(); err == nil {
			return finite(f)
		}
		return v.String()
	case driver.Valuer:
		if isNilPointer(value) {
			return nil
		}
		inner, err := v.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		return SafeValue(inner)
	case interface{ Float64() float64 }:
		return finite(v.Float64())
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return SafeValue(rv.Elem().Interface())
	}
	if s, ok := value.(fmt.Stringer); ok {
		return s.String()
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = SafeValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = SafeValue(iter.Value().Interface())
		}
		return out
	}
	return fmt.Sprint(value)
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func isNilPointer(value any) bool {
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
