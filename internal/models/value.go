package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ValueKind discriminates the answer payload variants. Raw responses arrive
// as arbitrary JSON (string, number, boolean, or nested structures such as
// schedules and rich-text documents); the tagged union replaces runtime type
// inspection everywhere downstream.
type ValueKind string

const (
	ValueEmpty      ValueKind = "empty"
	ValueText       ValueKind = "text"
	ValueNumber     ValueKind = "number"
	ValueBool       ValueKind = "boolean"
	ValueStructured ValueKind = "structured"
)

// AnswerValue is the tagged union of answer payloads.
type AnswerValue struct {
	Kind       ValueKind       `json:"kind"`
	Text       string          `json:"text,omitempty"`
	Number     float64         `json:"number,omitempty"`
	Bool       bool            `json:"bool,omitempty"`
	Structured json.RawMessage `json:"structured,omitempty"`
}

// ParseAnswerValue classifies a raw JSON payload. It is total: malformed
// input is carried as a structured blob, never dropped.
func ParseAnswerValue(raw []byte) AnswerValue {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return AnswerValue{Kind: ValueEmpty}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return AnswerValue{Kind: ValueEmpty}
		}
		return AnswerValue{Kind: ValueText, Text: s}
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return AnswerValue{Kind: ValueNumber, Number: n}
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return AnswerValue{Kind: ValueBool, Bool: b}
	}

	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return AnswerValue{Kind: ValueStructured, Structured: cp}
}

// TextValue builds a text answer value.
func TextValue(s string) AnswerValue {
	if strings.TrimSpace(s) == "" {
		return AnswerValue{Kind: ValueEmpty}
	}
	return AnswerValue{Kind: ValueText, Text: s}
}

// NumberValue builds a numeric answer value.
func NumberValue(n float64) AnswerValue {
	return AnswerValue{Kind: ValueNumber, Number: n}
}

// BoolValue builds a boolean answer value.
func BoolValue(b bool) AnswerValue {
	return AnswerValue{Kind: ValueBool, Bool: b}
}

// ListValue builds a structured answer value from an ordered string list.
func ListValue(items []string) AnswerValue {
	raw, _ := json.Marshal(items)
	return AnswerValue{Kind: ValueStructured, Structured: raw}
}

// IsEmpty reports whether the answer carries no usable payload.
func (v AnswerValue) IsEmpty() bool {
	return v.Kind == ValueEmpty || v.Kind == ""
}

// String is the total conversion to a human-readable string, one branch per
// variant.
func (v AnswerValue) String() string {
	switch v.Kind {
	case ValueText:
		return v.Text
	case ValueNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueStructured:
		if items, ok := v.StringList(); ok {
			return strings.Join(items, ", ")
		}
		return string(v.Structured)
	default:
		return ""
	}
}

// StringList extracts an ordered string list from a structured payload.
// Used for ranking answers.
func (v AnswerValue) StringList() ([]string, bool) {
	if v.Kind != ValueStructured {
		return nil, false
	}
	var items []string
	if err := json.Unmarshal(v.Structured, &items); err != nil {
		return nil, false
	}
	return items, true
}

// RawJSON renders the payload back to the wire representation.
func (v AnswerValue) RawJSON() json.RawMessage {
	switch v.Kind {
	case ValueText:
		raw, _ := json.Marshal(v.Text)
		return raw
	case ValueNumber:
		raw, _ := json.Marshal(v.Number)
		return raw
	case ValueBool:
		raw, _ := json.Marshal(v.Bool)
		return raw
	case ValueStructured:
		return v.Structured
	default:
		return json.RawMessage("null")
	}
}
