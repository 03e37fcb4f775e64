package fetcher

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/creator-sync/internal/provider"
)

// accessor pulls one candidate value out of a raw item
type accessor func(item provider.RawItem) (any, bool)

// field resolves a dotted path such as "videoMeta.covers.0"
func field(path string) accessor {
	parts := strings.Split(path, ".")
	return func(item provider.RawItem) (any, bool) {
		var cur any = item
		for _, part := range parts {
			switch node := cur.(type) {
			case map[string]any:
				v, ok := node[part]
				if !ok {
					return nil, false
				}
				cur = v
			case []any:
				idx, err := strconv.Atoi(part)
				if err != nil || idx < 0 || idx >= len(node) {
					return nil, false
				}
				cur = node[idx]
			default:
				return nil, false
			}
		}
		if cur == nil {
			return nil, false
		}
		return cur, true
	}
}

// fields builds accessors for a list of paths, tried in order
func fields(paths ...string) []accessor {
	out := make([]accessor, len(paths))
	for i, p := range paths {
		out[i] = field(p)
	}
	return out
}

// firstString returns the first accessor yielding a non-empty string
func firstString(item provider.RawItem, accessors ...accessor) string {
	for _, get := range accessors {
		v, ok := get(item)
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		case json.Number:
			return s.String()
		}
	}
	return ""
}

// firstInt returns the first accessor yielding a number; absent counts are zero
func firstInt(item provider.RawItem, accessors ...accessor) int64 {
	for _, get := range accessors {
		v, ok := get(item)
		if !ok {
			continue
		}
		if n, ok := toInt(v); ok {
			return n
		}
	}
	return 0
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func firstBool(item provider.RawItem, accessors ...accessor) bool {
	for _, get := range accessors {
		if v, ok := get(item); ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
	}
	return false
}

// firstTime returns the first parseable date. Numbers are unix seconds
// (milliseconds above 1e12). Absent dates default to now.
func firstTime(item provider.RawItem, now time.Time, accessors ...accessor) time.Time {
	for _, get := range accessors {
		v, ok := get(item)
		if !ok {
			continue
		}
		if t, ok := toTime(v); ok {
			return t
		}
	}
	return now
}

func toTime(v any) (time.Time, bool) {
	switch v.(type) {
	case float64, json.Number:
		n, ok := toInt(v)
		return unixTime(n), ok && n > 0
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return unixTime(n), n > 0
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

func unixTime(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// firstDuration returns seconds from a number or an "HH:MM:SS" / "MM:SS" string
func firstDuration(item provider.RawItem, accessors ...accessor) int {
	for _, get := range accessors {
		v, ok := get(item)
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.Contains(s, ":") {
			if d, ok := parseClock(s); ok {
				return d
			}
			continue
		}
		if n, ok := toInt(v); ok {
			return int(n)
		}
	}
	return 0
}

func parseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return 0, false
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}
