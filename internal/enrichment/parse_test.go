package enrichment

import (
	"testing"

	"github.com/jonathan/codemap/internal/apperr"
	"github.com/jonathan/codemap/internal/proficiency"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelMap(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantNames []string
		wantErr   bool
	}{
		{
			name:      "plain object",
			raw:       `{"Python": "Advanced", "SQL": "Basic"}`,
			wantNames: []string{"Python", "SQL"},
		},
		{
			name:      "json fence",
			raw:       "```json\n{\"Django\": \"Intermediate\"}\n```",
			wantNames: []string{"Django"},
		},
		{
			name:      "preamble and trailer",
			raw:       "Sure! Here are the skills:\n{\"Go\": \"Advanced\"}\nLet me know.",
			wantNames: []string{"Go"},
		},
		{
			name:      "empty object",
			raw:       `{}`,
			wantNames: []string{},
		},
		{name: "empty output", raw: "   ", wantErr: true},
		{name: "array", raw: `["Python", "SQL"]`, wantErr: true},
		{name: "prose", raw: "I could not find any skills.", wantErr: true},
		{name: "truncated", raw: `{"Python": "Adv`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseLevelMap(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperr.ErrCollaboratorParse)
				assert.Equal(t, 0, m.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNames, m.Names())
		})
	}
}

func TestParseLevelMap_NormalizesLevels(t *testing.T) {
	m, err := ParseLevelMap(`{"Python": "advanced", "Excel": "Expert", "Go": 2}`)
	require.NoError(t, err)

	lvl, _ := m.Get("Python")
	assert.Equal(t, proficiency.Advanced, lvl)
	lvl, _ = m.Get("Excel")
	assert.Equal(t, proficiency.NotProvided, lvl)
	lvl, _ = m.Get("Go")
	assert.Equal(t, proficiency.Intermediate, lvl)
}

func TestParseOrDefault(t *testing.T) {
	m, err := ParseOrDefault("nonsense")
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())

	m, err = ParseOrDefault(`{"SQL":"Basic"}`)
	assert.NoError(t, err)
	assert.Equal(t, 1, m.Len())
}

func TestParseSkillsKnowledge(t *testing.T) {
	raw := "```json\n{\"skills\": {\"Python\": \"Intermediate\"}, \"knowledge\": {\"Algorithms\": \"Basic\"}}\n```"

	sk, err := ParseSkillsKnowledge(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Python"}, sk.Skills.Names())
	assert.Equal(t, []string{"Algorithms"}, sk.Knowledge.Names())

	t.Run("missing key", func(t *testing.T) {
		sk, err := ParseSkillsKnowledge(`{"skills": {"Go": "Basic"}}`)
		require.NoError(t, err)
		assert.Equal(t, 0, sk.Knowledge.Len())
	})

	t.Run("malformed key", func(t *testing.T) {
		_, err := ParseSkillsKnowledge(`{"skills": ["Go"], "knowledge": {}}`)
		assert.ErrorIs(t, err, apperr.ErrCollaboratorParse)
	})
}

func FuzzParseLevelMap(f *testing.F) {
	seeds := []string{
		`{"Python":"Advanced"}`,
		"```json\n{\"a\":\"Basic\"}\n```",
		"text {\"x\": 1} more",
		"",
		"{",
		"}{",
		`{"a":{"b":"c"}}`,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, raw string) {
		m, err := ParseLevelMap(raw)
		if err != nil {
			if m.Len() != 0 {
				t.Fatalf("non-empty map alongside error for %q", raw)
			}
			if apperr.KindOf(err) != apperr.KindCollaboratorParse {
				t.Fatalf("unexpected error kind for %q: %v", raw, err)
			}
			return
		}
		for _, e := range m.Entries() {
			if !e.Level.Valid() {
				t.Fatalf("invalid level %d for %q", e.Level, e.Name)
			}
		}
	})
}
