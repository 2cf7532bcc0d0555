package schema

import (
	"encoding/json"
	"strconv"
	"strings"
)

// The scalar types below absorb the loose encodings that show up in old
// local-storage blobs, CSV imports, and spreadsheet-backed remotes (numbers
// where strings are expected, "yes"/"1" for booleans, and so on). Their
// UnmarshalJSON methods never fail; malformed input decodes to the zero
// value so record loading is total.

// Flag is a boolean coerced from loose representations: true, "true", "1",
// "yes" (case-insensitive) and the number 1 all decode to true. Anything
// else is false.
type Flag bool

// CoerceBool applies Flag's coercion rules to an arbitrary decoded value.
func CoerceBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes":
			return true
		}
	case float64:
		return t == 1
	}
	return false
}

func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		*f = false
		return nil
	}
	*f = Flag(CoerceBool(v))
	return nil
}

// Text is a free-text string that tolerates numeric and boolean JSON values
// (spreadsheets hand back ages and room numbers as numbers). null decodes
// to the empty string.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		*t = ""
		return nil
	}
	switch x := v.(type) {
	case string:
		*t = Text(x)
	case float64:
		*t = Text(strconv.FormatFloat(x, 'f', -1, 64))
	case bool:
		if x {
			*t = "true"
		} else {
			*t = "false"
		}
	default:
		*t = ""
	}
	return nil
}

// Score is an ESAS symptom score in 1..10. Zero means unanswered and
// round-trips as JSON null.
type Score int

// Answered reports whether the score was actually selected.
func (s Score) Answered() bool { return s >= 1 && s <= 10 }

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Answered() {
		return []byte("null"), nil
	}
	return json.Marshal(int(s))
}

func (s *Score) UnmarshalJSON(data []byte) error {
	*s = Score(coerceInt(data))
	if !s.Answered() {
		*s = 0
	}
	return nil
}

// Grade is a CTCAE severity grade in 0..4. Grade 0 is a valid answer
// ("none"), so the unset state is represented by a nil *Grade in record
// structs; GradeUnset only appears transiently while decoding.
type Grade int

// GradeUnset marks a decoded grade that was out of range.
const GradeUnset Grade = -1

// Valid reports whether the grade is in the 0..4 range.
func (g Grade) Valid() bool { return g >= 0 && g <= 4 }

func (g *Grade) UnmarshalJSON(data []byte) error {
	*g = Grade(coerceInt(data))
	if !g.Valid() {
		*g = GradeUnset
	}
	return nil
}

// GradePtr is a convenience constructor for literal records and tests.
func GradePtr(g Grade) *Grade { return &g }

// LabValue is a free-text lab result. The empty value round-trips as JSON
// null, matching untouched labs in stored rosters.
type LabValue string

func (l LabValue) MarshalJSON() ([]byte, error) {
	if l == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(l))
}

func (l *LabValue) UnmarshalJSON(data []byte) error {
	var t Text
	_ = t.UnmarshalJSON(data)
	*l = LabValue(t)
	return nil
}

// coerceInt decodes a JSON number or numeric string; anything else yields a
// value outside every valid range.
func coerceInt(data []byte) int {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return -1
	}
	switch x := v.(type) {
	case float64:
		if x == float64(int(x)) {
			return int(x)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return n
		}
	}
	return -1
}
