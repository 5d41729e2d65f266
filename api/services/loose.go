package services

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Model replies are loosely typed: numbers arrive as strings, strings as
// numbers, arrays as null. These wrappers decode what they can and leave the
// zero value otherwise so one odd field never fails the whole payload.

type looseNumber struct {
	Value float64
	Set   bool
}

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		n.Value, n.Set = f, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			n.Value, n.Set = f, true
		}
	}
	return nil
}

// Percent rounds to an int clamped to 0..100, or returns def when unset.
func (n looseNumber) Percent(def int) int {
	if !n.Set || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return def
	}
	return clampPercent(int(math.Round(n.Value)))
}

type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err == nil {
		*s = looseString(strings.TrimSpace(v))
	}
	return nil
}

func (s looseString) Lower() string {
	return strings.ToLower(string(s))
}

type looseBool struct {
	Value bool
	Set   bool
}

func (b *looseBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		b.Value, b.Set = v, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			b.Value, b.Set = parsed, true
		}
	}
	return nil
}

// Or returns the decoded value, or def when the field was absent or unreadable.
func (b looseBool) Or(def bool) bool {
	if !b.Set {
		return def
	}
	return b.Value
}

type looseStrings []string

func (l *looseStrings) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	*l = out
	return nil
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
