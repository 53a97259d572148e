// Package gaps classifies a user's skills and knowledge against a job's
// requirements and keeps one record per (user, job) pair.
package gaps

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jonathan/codemap/internal/proficiency"
)

// Status is the outcome for one required item.
type Status string

const (
	Missing  Status = "Missing"
	Weak     Status = "Weak"
	Achieved Status = "Achieved"
)

// Statuses returns every status in severity order.
func Statuses() []Status {
	return []Status{Missing, Weak, Achieved}
}

// Item is the classification of one required skill or knowledge area.
type Item struct {
	Name          string            `json:"-"`
	RequiredLevel proficiency.Level `json:"required_level"`
	UserLevel     proficiency.Level `json:"user_level"`
	Status        Status            `json:"status"`
}

// StatusMap holds items in job requirement order and encodes as a JSON
// object keyed by item name.
type StatusMap []Item

// Get returns the item named name.
func (m StatusMap) Get(name string) (Item, bool) {
	for _, it := range m {
		if it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}

// Count returns how many items have status s.
func (m StatusMap) Count(s Status) int {
	n := 0
	for _, it := range m {
		if it.Status == s {
			n++
		}
	}
	return n
}

// MarshalJSON writes the items as an object in slice order.
func (m StatusMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, it := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(it.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(it)
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

// UnmarshalJSON reads an object, keeping document key order.
func (m *StatusMap) UnmarshalJSON(data []byte) error {
	*m = nil
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("status map: expected JSON object, got %v", tok)
	}

	out := StatusMap{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("status map: expected string key, got %v", tok)
		}
		var it Item
		if err := dec.Decode(&it); err != nil {
			return fmt.Errorf("status map: value for %q: %w", name, err)
		}
		it.Name = name
		out = append(out, it)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// Analysis is the gap classification for one job.
type Analysis struct {
	Skills    StatusMap `json:"skills"`
	Knowledge StatusMap `json:"knowledge"`
}

// Empty reports whether no item was classified.
func (a Analysis) Empty() bool {
	return len(a.Skills) == 0 && len(a.Knowledge) == 0
}

// Classify compares the user's maps against the job's requirement maps.
// Every required item appears exactly once, in requirement order; items
// only the user has are ignored. Lookups are case-sensitive.
func Classify(userSkills, userKnowledge, reqSkills, reqKnowledge proficiency.Map) Analysis {
	return Analysis{
		Skills:    classifyMap(userSkills, reqSkills),
		Knowledge: classifyMap(userKnowledge, reqKnowledge),
	}
}

func classifyMap(user, required proficiency.Map) StatusMap {
	out := make(StatusMap, 0, required.Len())
	for _, req := range required.Entries() {
		have, _ := user.Get(req.Name)
		out = append(out, ClassifyItem(req.Name, req.Level, have))
	}
	return out
}

// ClassifyItem classifies a single requirement. A NotProvided user level is
// Missing regardless of the required level.
func ClassifyItem(name string, required, user proficiency.Level) Item {
	it := Item{Name: name, RequiredLevel: required, UserLevel: user}
	switch {
	case user == proficiency.NotProvided:
		it.Status = Missing
	case user.AtLeast(required):
		it.Status = Achieved
	default:
		it.Status = Weak
	}
	return it
}
