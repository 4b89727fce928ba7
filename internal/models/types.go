package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ID accepts both numeric and string identifiers from the remote API.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Number is a nullable number that may arrive as a JSON number, a numeric
// string, or null. Valid is false for anything that is not a finite number.
type Number struct {
	Value float64
	Valid bool
}

// Num builds a valid Number.
func Num(v float64) Number { return Number{Value: v, Valid: true} }

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		// Garbage is treated as missing; callers decide what missing means.
		return nil
	}
	*n = Num(v)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Or returns the value, or def when the number is missing.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// ParseTimestamp accepts RFC3339 with or without zone suffix, and unix
// seconds or milliseconds.
func ParseTimestamp(raw string) (time.Time, error) {
	ts := strings.TrimSpace(raw)
	if ts == "" {
		return time.Time{}, nil
	}
	if n, err := strconv.ParseInt(ts, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	if len(ts) > 6 && !(strings.HasSuffix(ts, "Z") || strings.ContainsAny(ts[len(ts)-6:], "+-")) {
		ts += "Z"
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02 15:04:05Z", ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}
