package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	prompt, err := Get("matching.json", "job_skills")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.Description}}")
}

func TestGet_InvalidFile(t *testing.T) {
	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	_, err := Get("matching.json", "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet(t *testing.T) {
	assert.Panics(t, func() { MustGet("nonexistent.json", "some-key") })
	assert.NotPanics(t, func() { assert.NotEmpty(t, MustGet("profile.json", "profile_text")) })
}

func TestFormat(t *testing.T) {
	template := "Hello {{.Name}}, welcome to {{.Company}}! {{.Missing}}"
	data := map[string]string{
		"Name":    "Alice",
		"Company": "Acme Corp",
	}

	assert.Equal(t, "Hello Alice, welcome to Acme Corp! {{.Missing}}", Format(template, data))
	assert.Equal(t, template, Format(template, nil))
}

func TestFormat_ValueContainingPlaceholder(t *testing.T) {
	out := Format("{{.A}} {{.B}}", map[string]string{"A": "{{.B}}", "B": "b"})
	assert.Equal(t, "{{.B}} b", out)
}

func TestRender_AllPromptsFill(t *testing.T) {
	files := map[string]map[string]string{
		"matching.json": {"Description": "Build dashboards in SQL."},
		"profile.json":  {"UserData": `{"major":"CS"}`},
	}

	for file, data := range files {
		keys, err := List(file)
		require.NoError(t, err)
		require.NotEmpty(t, keys)

		for _, key := range keys {
			out, err := Render(file, key, data)
			require.NoError(t, err)
			assert.False(t, strings.Contains(out, "{{."), "%s/%s left a placeholder", file, key)
		}
	}
}

func TestList_Sorted(t *testing.T) {
	keys, err := List("matching.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"job_knowledge", "job_skills", "job_summary"}, keys)
}
