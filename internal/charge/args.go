// Package charge turns loosely typed caller input into well-formed charge,
// capture and retrieve requests. Nothing in here performs I/O.
package charge

import (
	"fmt"
	"strconv"
)

// Args is the caller-supplied field mapping for one request. A key is present
// when it exists with a non-nil value; an explicitly empty string is present.
type Args map[string]any

// Clone returns a shallow copy so building a request never mutates the
// caller's mapping. Nested metadata/shipping maps are shared, which is fine
// because flattening only reads them.
func (a Args) Clone() Args {
	out := make(Args, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Get returns the field as a string and whether it is present.
func (a Args) Get(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	return toString(v), true
}

// Has reports whether the field is present.
func (a Args) Has(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// toBool interprets a capture flag. Strings go through strconv.ParseBool so
// "true", "1", "false" and "0" all work.
func toBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(t)
		return b, err == nil
	case int:
		return t != 0, true
	case int64:
		return t != 0, true
	case float64:
		return t != 0, true
	default:
		return false, false
	}
}
