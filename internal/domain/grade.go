package domain

import (
	"encoding"
	"encoding/json"
	"fmt"
)

// Grade is the learner's answer to a review, as a tagged variant. The
// product records a binary correct/incorrect signal, so only two variants
// are populated; the numeric values match the classical four-grade
// again/hard/good/easy scale, leaving the intermediate slots free for a
// future multi-grade input without a wire-format change.
type Grade int

const (
	GradeAgain Grade = 1 // Incorrect answer.
	GradeGood  Grade = 3 // Correct answer.
)

var (
	gradeNames = map[Grade]string{
		GradeAgain: "again",
		GradeGood:  "good",
	}
	gradeByName = map[string]Grade{
		"again": GradeAgain,
		"good":  GradeGood,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Grade(0)
	_ json.Marshaler           = Grade(0)
	_ json.Unmarshaler         = (*Grade)(nil)
	_ encoding.TextMarshaler   = Grade(0)
	_ encoding.TextUnmarshaler = (*Grade)(nil)
)

// IsValid reports whether g is a populated grade variant.
func (g Grade) IsValid() bool {
	_, ok := gradeNames[g]
	return ok
}

// Correct reports whether the grade counts as a successful recall.
func (g Grade) Correct() bool {
	return g != GradeAgain
}

// String returns the lowercase grade name. For invalid values it returns
// "Grade(n)".
func (g Grade) String() string {
	if name, ok := gradeNames[g]; ok {
		return name
	}
	return fmt.Sprintf("Grade(%d)", int(g))
}

// MarshalText implements encoding.TextMarshaler.
func (g Grade) MarshalText() ([]byte, error) {
	name, ok := gradeNames[g]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGrade, int(g))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Grade) UnmarshalText(text []byte) error {
	v, ok := gradeByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidGrade, text)
	}
	*g = v
	return nil
}

// MarshalJSON implements json.Marshaler. Grade serializes as a JSON string.
func (g Grade) MarshalJSON() ([]byte, error) {
	text, err := g.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (g *Grade) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidGrade, data)
	}
	return g.UnmarshalText([]byte(s))
}
