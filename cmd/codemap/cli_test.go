package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/codemap/internal/apperr"
	"github.com/jonathan/codemap/internal/enrichment"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and resets command state afterwards.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		cfgFile, outputFormat = "", "text"
		rankTopK, rankVector = 0, ""
		gapsJob, gapsStored = -1, false
		buildCacheClearEnrichment = false
		rootCmd.SetArgs(nil)
		for _, cmd := range []*cobra.Command{rankCmd, gapsCmd, buildCacheCmd} {
			cmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
		}
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "codemap version: unknown\n", out)
}

func TestRootHasCommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "rank", "gaps", "analyze-skills", "build-cache", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRankCommand_RequiresExactlyOneInput(t *testing.T) {
	_, err := execute(t, "rank")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provide either a user_test_id or --vector")

	_, err = execute(t, "rank", "7", "--vector", "1,2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provide either a user_test_id or --vector")
}

func TestRankCommand_InvalidInput(t *testing.T) {
	_, err := execute(t, "rank", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid user test id")

	_, err = execute(t, "rank", "--vector", "1,x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid vector component")
}

func TestGapsCommand_StoredRequiresJob(t *testing.T) {
	_, err := execute(t, "gaps", "7", "--stored")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--stored requires --job")
}

func TestGapsCommand_StoredRecordMissing(t *testing.T) {
	dir := t.TempDir()
	fixtures := filepath.Join(dir, "fixtures.json")
	require.NoError(t, os.WriteFile(fixtures, []byte(`{"user_skills":[{"user_test_id":12,"skills":{"Go":"Advanced"},"knowledge":{}}]}`), 0644))
	cfg := filepath.Join(dir, "codemap.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("store: memory\nfixtures: "+fixtures+"\ndata-dir: "+dir+"\nllm:\n  api-key: test-key\n  enrich: false\n"), 0644))

	_, err := execute(t, "--config", cfg, "gaps", "12", "--job", "0", "--stored")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNoData)
}

func TestParseUserTestID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"7", 7, false},
		{"9000000000", 9000000000, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"seven", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseUserTestID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVector(t *testing.T) {
	v, err := parseVector(" 0.5, 1 ,-2,")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1, -2}, v)

	_, err = parseVector(" , ")
	assert.Error(t, err)
}

func TestEmit(t *testing.T) {
	t.Cleanup(func() { outputFormat = "text" })

	var buf bytes.Buffer
	called := false
	outputFormat = "text"
	require.NoError(t, emit(&buf, map[string]int{"a": 1}, func() { called = true }))
	assert.True(t, called)
	assert.Empty(t, buf.String())

	outputFormat = "json"
	require.NoError(t, emit(&buf, map[string]int{"a": 1}, func() { t.Fatal("text renderer called") }))
	assert.Equal(t, "{\n  \"a\": 1\n}\n", buf.String())

	outputFormat = "yaml"
	assert.Error(t, emit(&buf, nil, func() {}))
}

type fakePrefixDeleter struct {
	available bool
	prefix    string
	n         int
	err       error
}

func (f *fakePrefixDeleter) Available() bool { return f.available }

func (f *fakePrefixDeleter) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	f.prefix = prefix
	return f.n, f.err
}

func TestClearEnrichment(t *testing.T) {
	var out bytes.Buffer
	d := &fakePrefixDeleter{available: true, n: 4}
	require.NoError(t, clearEnrichment(context.Background(), d, &out))
	assert.Equal(t, enrichment.CacheKeyPrefix, d.prefix)
	assert.Equal(t, "Cleared 4 cached enrichments\n", out.String())

	out.Reset()
	d = &fakePrefixDeleter{}
	require.NoError(t, clearEnrichment(context.Background(), d, &out))
	assert.Empty(t, d.prefix)
	assert.Contains(t, out.String(), "Redis unavailable")

	d = &fakePrefixDeleter{available: true, err: errors.New("scan failed")}
	err := clearEnrichment(context.Background(), d, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan failed")
}
