package proficiency

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_SetKeepsFirstPosition(t *testing.T) {
	var m Map
	m.Set("SQL", Basic)
	m.Set("Python", Advanced)
	m.Set("SQL", Intermediate)

	assert.Equal(t, []string{"SQL", "Python"}, m.Names())
	lvl, ok := m.Get("SQL")
	require.True(t, ok)
	assert.Equal(t, Intermediate, lvl)
}

func TestMap_GetIsCaseSensitive(t *testing.T) {
	m := NewMap(Entry{Name: "Python", Level: Advanced})

	_, ok := m.Get("python")
	assert.False(t, ok)

	lvl, ok := m.Get("Python")
	assert.True(t, ok)
	assert.Equal(t, Advanced, lvl)
}

func TestMap_ZeroValue(t *testing.T) {
	var m Map
	assert.Equal(t, 0, m.Len())
	_, ok := m.Get("anything")
	assert.False(t, ok)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}

func TestMap_JSONPreservesOrder(t *testing.T) {
	in := `{"Zeta":"Advanced","Alpha":"basic","Mid":"Intermediate","Odd":"Expert"}`

	var m Map
	require.NoError(t, json.Unmarshal([]byte(in), &m))
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid", "Odd"}, m.Names())

	lvl, _ := m.Get("Odd")
	assert.Equal(t, NotProvided, lvl)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"Zeta":"Advanced","Alpha":"Basic","Mid":"Intermediate","Odd":"Not Provided"}`, string(out))
}

func TestMap_UnmarshalRejectsNonObject(t *testing.T) {
	var m Map
	assert.Error(t, json.Unmarshal([]byte(`["Python"]`), &m))
	assert.Error(t, json.Unmarshal([]byte(`"Python"`), &m))
}

func TestMap_UnmarshalNull(t *testing.T) {
	m := FromStrings("Go", "Basic")
	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Equal(t, 0, m.Len())
}

func TestMap_CloneIsIndependent(t *testing.T) {
	a := FromStrings("Go", "Basic")
	b := a.Clone()
	b.Set("Go", Advanced)
	b.Set("Rust", Basic)

	lvl, _ := a.Get("Go")
	assert.Equal(t, Basic, lvl)
	assert.Equal(t, 1, a.Len())
}

func TestMap_SetOnCopyLeavesOriginal(t *testing.T) {
	a := FromStrings("Go", "Basic", "SQL", "Intermediate")
	b := a
	b.Set("Go", Advanced)
	b.Set("Rust", Basic)
	c := a
	c.Set("Python", Advanced)

	lvl, _ := a.Get("Go")
	assert.Equal(t, Basic, lvl)
	assert.Equal(t, []string{"Go", "SQL"}, a.Names())
	_, ok := a.Get("Rust")
	assert.False(t, ok)

	assert.Equal(t, []string{"Go", "SQL", "Rust"}, b.Names())
	assert.Equal(t, []string{"Go", "SQL", "Python"}, c.Names())
	lvl, _ = b.Get("Rust")
	assert.Equal(t, Basic, lvl)
}

func TestFromStrings_PanicsOnOddArgs(t *testing.T) {
	assert.Panics(t, func() { FromStrings("Go") })
}
