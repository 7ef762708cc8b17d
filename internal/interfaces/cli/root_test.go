package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/intelligence/descriptor"
	"github.com/turtacn/SeqQuant/internal/intelligence/latent"
)

// runCLI executes the root command with args and returns stdout, stderr
// and the error.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeTestConfig generates small dense encoders under a temp dir and
// returns a config file pointing at them. extra is appended verbatim.
func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	paths := map[string]string{}
	for i, name := range []string{"protein", "aptamer"} {
		var buf bytes.Buffer
		w := latent.GenerateDenseWeights(name, descriptor.NumProperties, polymer.MaxSequenceLength, 8, int64(i+1))
		require.NoError(t, latent.SaveDenseWeights(&buf, w))
		p := filepath.Join(dir, name+".json")
		writeFile(t, p, buf.String())
		paths[name] = p
	}
	cfg := "artifacts:\n" +
		"  protein_model_path: " + paths["protein"] + "\n" +
		"  aptamer_model_path: " + paths["aptamer"] + "\n" +
		"metrics:\n  enabled: false\n" + extra
	path := filepath.Join(dir, "seqquant.yaml")
	writeFile(t, path, cfg)
	return path
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "seqquant", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"encode", "monomers", "info", "descriptors", "artifacts", "cache", "topics", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestNewRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	pf := cmd.PersistentFlags()

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"config", "c", ""},
		{"log-level", "", "warn"},
		{"output", "o", "text"},
		{"verbose", "v", "false"},
		{"no-color", "", "false"},
		{"timeout", "", "1m0s"},
		{"server", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := pf.Lookup(tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.shorthand, f.Shorthand)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestRoot_InvalidOutputFormat(t *testing.T) {
	_, _, err := runCLI(t, "--output", "yaml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestRoot_MissingConfigFile(t *testing.T) {
	_, _, err := runCLI(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config initialization failed")
}

func TestVersionCmd(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "seqquant dev"))

	out, _, err = runCLI(t, "-o", "json", "version")
	require.NoError(t, err)
	var v versionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, Version, v.Version)
	assert.NotEmpty(t, v.GoVersion)
}

func TestFormatTable(t *testing.T) {
	assert.Empty(t, FormatTable(nil, nil))

	out := FormatTable([]string{"NAME", "VALUE"}, [][]string{{"alpha", "1"}, {"beta", "22"}})
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "beta")
	assert.Contains(t, out, "22")
	assert.Greater(t, strings.Count(out, "\n"), 2)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewVersionCmd()
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestPrintError_ColorlessMessage(t *testing.T) {
	cmd := NewRootCommand()
	var stderr bytes.Buffer
	cmd.SetErr(&stderr)
	PrintError(cmd, assert.AnError)
	assert.Contains(t, stderr.String(), assert.AnError.Error())

	stderr.Reset()
	PrintError(cmd, nil)
	assert.Empty(t, stderr.String())
}
