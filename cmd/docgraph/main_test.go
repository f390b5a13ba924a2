package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "docgraph version "))
}

func TestSchemaPrint(t *testing.T) {
	out, err := run(t, "schema", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE CONSTRAINT")
	assert.Contains(t, out, "`Organization`")
}

func TestIngest_RequiresPath(t *testing.T) {
	_, err := run(t, "ingest")
	assert.Error(t, err)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[cache]\nbackend = \"tape\"\n"), 0o644))

	_, err := loadConfig(&globalFlags{configPath: path})
	assert.ErrorContains(t, err, "invalid configuration")
}
