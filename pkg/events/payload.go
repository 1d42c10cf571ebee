package events

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Accessors for loosely-typed JSON maps. All of them degrade to zero
// values when a key is missing or has an unexpected type.

func object(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	o, _ := m[key].(map[string]any)
	return o
}

func list(m map[string]any, key string) []any {
	if m == nil {
		return nil
	}
	l, _ := m[key].([]any)
	return l
}

// str returns string and numeric values as strings.
func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// present reports whether a key holds a non-empty value,
// using the same notion of emptiness as JSON truthiness.
func present(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	switch v := m[key].(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case json.Number:
		return v.String() != "0"
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func rawList(l []any) []json.RawMessage {
	if len(l) == 0 {
		return nil
	}
	raws := make([]json.RawMessage, 0, len(l))
	for _, v := range l {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		raws = append(raws, b)
	}
	return raws
}

// parseEpoch converts a Unix timestamp such as "1600000000.000200" or 1600000000
// into a time in the given location. Slack message timestamps have microsecond
// precision, so the fraction is parsed separately instead of as a float.
func parseEpoch(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	secPart, fracPart, _ := strings.Cut(s, ".")
	if strings.ContainsAny(secPart, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, false
		}
		secPart, fracPart, _ = strings.Cut(strconv.FormatFloat(f, 'f', 6, 64), ".")
	}

	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return time.Time{}, false
	}

	var nsec int64
	if fracPart != "" {
		if len(fracPart) > 9 {
			fracPart = fracPart[:9]
		}
		fracPart += strings.Repeat("0", 9-len(fracPart))
		if nsec, err = strconv.ParseInt(fracPart, 10, 64); err != nil {
			return time.Time{}, false
		}
	}

	if loc == nil {
		loc = time.UTC
	}
	return time.Unix(sec, nsec).In(loc), true
}

// dateOnly truncates a time to midnight of the same day, in the same location.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
