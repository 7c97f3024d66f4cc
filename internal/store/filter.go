package store

import (
	"sort"
	"strings"
	"time"
)

// Operator keys understood inside filter values, plus the top-level $or.
const (
	opIn = "$in"
	opNe = "$ne"
	opOr = "$or"
)

// Matches evaluates the filter predicate against a record. An empty filter
// matches everything.
func Matches(rec Record, filter Record) bool {
	for key, want := range filter {
		if key == opOr {
			if !matchesOr(rec, want) {
				return false
			}
			continue
		}
		if !matchesField(rec[key], want) {
			return false
		}
	}
	return true
}

func matchesOr(rec Record, want interface{}) bool {
	branches, ok := want.([]interface{})
	if !ok {
		return false
	}
	for _, branch := range branches {
		sub, ok := branch.(map[string]interface{})
		if !ok {
			continue
		}
		if Matches(rec, sub) {
			return true
		}
	}
	return false
}

func matchesField(have, want interface{}) bool {
	if ops, ok := want.(map[string]interface{}); ok {
		for op, arg := range ops {
			switch op {
			case opIn:
				values, ok := arg.([]interface{})
				if !ok {
					return false
				}
				found := false
				for _, v := range values {
					if valuesEqual(have, v) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			case opNe:
				if valuesEqual(have, arg) {
					return false
				}
			default:
				return false
			}
		}
		return true
	}
	return valuesEqual(have, want)
}

// valuesEqual compares two record values tolerating the numeric widening that
// a JSON round-trip introduces.
func valuesEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == b
	}
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Equal(tb)
		}
	}
	return a == b
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// SortRecords orders records by the named field; a '-' prefix sorts
// descending. Unknown or missing fields keep the original order (stable).
func SortRecords(records []Record, sortField string) {
	if sortField == "" {
		return
	}
	desc := strings.HasPrefix(sortField, "-")
	field := strings.TrimPrefix(sortField, "-")
	sort.SliceStable(records, func(i, j int) bool {
		less, ok := lessValue(records[i][field], records[j][field])
		if !ok {
			return false
		}
		if desc {
			return !less
		}
		return less
	})
}

func lessValue(a, b interface{}) (bool, bool) {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa < fb, fa != fb
		}
	}
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Before(tb), !ta.Equal(tb)
		}
	}
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return sa < sb, sa != sb
	}
	return false, false
}
