package provider

import "encoding/json"

// Dig walks a nested map along the given keys, returning nil as soon as a
// level is missing or not a map.
func Dig(v any, keys ...string) any {
	cur := v
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[k]
		if !ok {
			return nil
		}
	}
	return cur
}

// First returns the value of the first key present in the map. The upstream
// APIs rename fields across endpoint variants; callers list the candidates
// in priority order so the fallback chain stays auditable.
func First(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// FirstString is First with string coercion.
func FirstString(m map[string]any, keys ...string) string {
	return Str(First(m, keys...))
}

// AsList coerces a value to a slice: a nil value becomes an empty list, a
// scalar or map a single-element list. The APIs collapse one-element lists
// into bare objects.
func AsList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// AsMap returns v as a map, or nil.
func AsMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// Str renders a scalar JSON value as a string. Numbers keep their exact
// representation (decoding uses json.Number).
func Str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	}
	return ""
}

// Int returns a value as an int, 0 if not numeric.
func Int(v any) int {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
	case string:
		var n int
		for _, r := range t {
			if r < '0' || r > '9' {
				return 0
			}
			n = n*10 + int(r-'0')
		}
		if t == "" {
			return 0
		}
		return n
	}
	return 0
}
