package proficiency

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Entry is a single name → level pair.
type Entry struct {
	Name  string
	Level Level
}

// Map is a name → Level map that remembers insertion order. The zero value is
// an empty map ready to use. Lookups are case-sensitive. Copies of a Map may
// share storage; Set never writes to storage another copy can see.
type Map struct {
	entries []Entry
	index   map[string]int
}

// NewMap builds a map from entries in order. Later duplicates overwrite the
// level of the first occurrence without moving it.
func NewMap(entries ...Entry) Map {
	var m Map
	for _, e := range entries {
		m.set(e.Name, e.Level)
	}
	return m
}

// FromStrings builds a map from raw pairs, normalizing every level.
// Pairs are given flat: name, level, name, level, ...
func FromStrings(pairs ...string) Map {
	if len(pairs)%2 != 0 {
		panic("proficiency.FromStrings: odd number of arguments")
	}
	var m Map
	for i := 0; i < len(pairs); i += 2 {
		m.set(pairs[i], Normalize(pairs[i+1]))
	}
	return m
}

// Set inserts or overwrites name.
func (m *Map) Set(name string, level Level) {
	m.entries = slices.Clone(m.entries)
	m.index = maps.Clone(m.index)
	m.set(name, level)
}

// set mutates in place. Only for maps not yet visible to any other copy.
func (m *Map) set(name string, level Level) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[name]; ok {
		m.entries[i].Level = level
		return
	}
	m.index[name] = len(m.entries)
	m.entries = append(m.entries, Entry{Name: name, Level: level})
}

// Get returns the level stored under name and whether it was present.
func (m Map) Get(name string) (Level, bool) {
	i, ok := m.index[name]
	if !ok {
		return NotProvided, false
	}
	return m.entries[i].Level, true
}

// Len returns the number of entries.
func (m Map) Len() int {
	return len(m.entries)
}

// Entries returns a copy of the entries in insertion order.
func (m Map) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Names returns the keys in insertion order.
func (m Map) Names() []string {
	out := make([]string, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Name
	}
	return out
}

// Clone returns an independent copy.
func (m Map) Clone() Map {
	return NewMap(m.entries...)
}

// MarshalJSON writes a JSON object with keys in insertion order.
func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := e.Level.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping document key order.
// A JSON null decodes to an empty map.
func (m *Map) UnmarshalJSON(data []byte) error {
	*m = Map{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("proficiency map: expected JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("proficiency map: expected string key, got %v", tok)
		}
		var lvl Level
		if err := dec.Decode(&lvl); err != nil {
			return fmt.Errorf("proficiency map: value for %q: %w", name, err)
		}
		m.set(name, lvl)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
