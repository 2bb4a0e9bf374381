package graphql

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/99designs/gqlgen/graphql"
)

// coerceScalar converts v to the Go value of a built-in scalar: int64,
// float64, string or bool. It serves argument values and resolved field
// values alike. Times are formatted as RFC 3339 strings and integers are
// accepted for booleans, as returned by SQL drivers.
func coerceScalar(name string, v any) (any, error) {
	switch name {
	case scalarInt:
		if n, ok := intValue(v); ok {
			return n, nil
		}
		return graphql.UnmarshalInt64(v)
	case scalarFloat:
		if f, ok := floatValue(v); ok {
			return f, nil
		}
		return graphql.UnmarshalFloat(v)
	case scalarString:
		switch s := v.(type) {
		case time.Time:
			return s.Format(time.RFC3339Nano), nil
		case []byte:
			return string(s), nil
		case fmt.Stringer:
			return s.String(), nil
		}
		return graphql.UnmarshalString(v)
	case scalarBoolean:
		if n, ok := intValue(v); ok {
			return n != 0, nil
		}
		return graphql.UnmarshalBoolean(v)
	case scalarID:
		if n, ok := intValue(v); ok {
			return strconv.FormatInt(n, 10), nil
		}
		return graphql.UnmarshalID(v)
	}
	return v, nil
}

func intValue(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n), true
		}
	case float32:
		if f := float64(n); f == math.Trunc(f) && math.Abs(f) < 1<<24 {
			return int64(f), true
		}
	}
	return 0, false
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := intValue(v); ok {
		return float64(i), true
	}
	return 0, false
}
