// Package jsonutil decodes loosely typed JSON fields from peer services.
package jsonutil

import (
	"encoding/json"
	"strconv"
)

// ErrorText returns a readable message from an "error" field that may be a
// string, a number or boolean, or an object carrying "message" or "error".
// Returns "" for null or empty input.
func ErrorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if msg := ErrorText(obj.Message); msg != "" {
			return msg
		}
		if msg := ErrorText(obj.Error); msg != "" {
			return msg
		}
	}

	return string(raw)
}

// Seconds reads a duration in seconds sent either as a JSON number or as a
// numeric string such as "0.42". Unparseable input yields 0.
func Seconds(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}
