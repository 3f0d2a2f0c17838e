// Package core provides number parsing and formatting utilities.
//
// This file contains functions for reading billable amounts and fee
// percentages from user input or stored documents, and for rounding
// derived values for display.
package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts a decimal string to a finite float64.
//
// Surrounding whitespace is ignored and a single decimal comma is accepted
// in place of a dot. No bounds are enforced.
//
// Examples:
//
//	ParseAmount("12.5")  -> 12.5, nil
//	ParseAmount(" 7,25") -> 7.25, nil
//	ParseAmount("abc")   -> 0, ErrInvalidNumber
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidNumber
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return 0, ErrInvalidNumber
	}
	return v, nil
}

// ParseOptionalAmount parses an optional numeric field. An empty string
// means "not set" and yields nil without error.
func ParseOptionalAmount(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := ParseAmount(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CoerceAmount parses s and falls back to 0 when it is not a number.
func CoerceAmount(s string) float64 {
	v, err := ParseAmount(s)
	if err != nil {
		return 0
	}
	return v
}

// DecodeNumber reads a JSON value that may be a number, a numeric string,
// null or absent. The boolean is false when no finite number is present.
func DecodeNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, isFinite(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := ParseAmount(s); err == nil {
			return v, true
		}
	}
	return 0, false
}

// RoundCents rounds v half away from zero to two decimal places. It is meant
// for presentation only; aggregation keeps full precision.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatAmount renders v with exactly two decimals, e.g. "200.00".
func FormatAmount(v float64) string {
	return strconv.FormatFloat(RoundCents(v), 'f', 2, 64)
}
