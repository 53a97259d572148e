// Package proficiency defines the ordered proficiency scale shared by job
// requirements and user profiles, and an insertion-ordered name → level map.
package proficiency

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is an ordinal proficiency level. Comparisons are numeric.
type Level int

const (
	// NotProvided marks an absent or unrecognized level. It is also the
	// lowest ordinal, so it never satisfies a Basic requirement.
	NotProvided Level = iota
	// Basic is the lowest real proficiency.
	Basic
	// Intermediate proficiency.
	Intermediate
	// Advanced is the highest proficiency.
	Advanced
)

var levelNames = [...]string{
	NotProvided:  "Not Provided",
	Basic:        "Basic",
	Intermediate: "Intermediate",
	Advanced:     "Advanced",
}

// Levels returns every level in ascending order.
func Levels() []Level {
	return []Level{NotProvided, Basic, Intermediate, Advanced}
}

// Normalize maps a free-form level string onto the scale. Matching is
// case-insensitive against the canonical names; anything else is NotProvided.
func Normalize(s string) Level {
	s = strings.TrimSpace(s)
	for lvl, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(lvl)
		}
	}
	return NotProvided
}

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool {
	return l >= NotProvided && l <= Advanced
}

// String returns the canonical name of the level.
func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// AtLeast reports whether l meets or exceeds required.
func (l Level) AtLeast(required Level) bool {
	return l >= required
}

// MarshalJSON encodes the level as its canonical name.
func (l Level) MarshalJSON() ([]byte, error) {
	if !l.Valid() {
		l = NotProvided
	}
	return json.Marshal(levelNames[l])
}

// UnmarshalJSON accepts either a level name or an ordinal 0-3.
// Unknown values decode to NotProvided rather than failing.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Normalize(s)
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		lvl := Level(n)
		if !lvl.Valid() {
			lvl = NotProvided
		}
		*l = lvl
		return nil
	}

	// null, objects, arrays, bools
	*l = NotProvided
	return nil
}
