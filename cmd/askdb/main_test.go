package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"askdb/internal/config"
	"askdb/internal/llm"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	color.NoColor = true
	os.Exit(m.Run())
}

// isolate points HOME and the ingest directory at a temp dir and clears any
// API key from the environment. It returns a CSV file to load.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("ASKDB_INGEST_DIR", filepath.Join(dir, "ingest"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ASKDB_OPENAI_API_KEY", "")
	t.Setenv("ASKDB_LOG_FILE", "")

	path := filepath.Join(dir, "sales.csv")
	csv := "region,units,price\nnorth,10,2.5\nsouth,4,3.0\nwest,7,1.25\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	return path
}

func runArgs(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestIsDSN(t *testing.T) {
	assert.True(t, isDSN("postgres://u:p@localhost/db"))
	assert.True(t, isDSN("sqlite:///tmp/x.db"))
	assert.False(t, isDSN("sales.csv"))
	assert.False(t, isDSN("/data/shop.db"))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", mask("abcd"))
	assert.Equal(t, "sk-1******wxyz", mask("sk-1234567wxyz"))
}

func TestRun_Help(t *testing.T) {
	out, _, err := runArgs(t, "help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	assert.Contains(t, out, "askdb query")
}

func TestRun_BadFlag(t *testing.T) {
	isolate(t)

	_, stderr, err := runArgs(t, "tables", "--nope")
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "Usage:")
}

func TestRun_NoSource(t *testing.T) {
	isolate(t)

	_, _, err := runArgs(t, "tables")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--db or --demo is required")
}

func TestTables(t *testing.T) {
	csv := isolate(t)

	out, _, err := runArgs(t, "tables", "--db", csv)
	require.NoError(t, err)
	assert.Equal(t, "data\n", out)
}

func TestSchema(t *testing.T) {
	csv := isolate(t)

	out, _, err := runArgs(t, "schema", "--db", csv)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "data\n"))
	assert.Regexp(t, `region\s+TEXT`, out)
	assert.Regexp(t, `units\s+INTEGER`, out)
	assert.Regexp(t, `price\s+REAL`, out)

	out, _, err = runArgs(t, "schema", "--mermaid", "--db", csv, "data")
	require.NoError(t, err)
	assert.Contains(t, out, "erDiagram")
	assert.Contains(t, out, "int units")

	_, _, err = runArgs(t, "schema", "--db", csv, "missing")
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	csv := isolate(t)
	export := filepath.Join(t.TempDir(), "out.csv")

	out, _, err := runArgs(t, "query", "--db", csv, "--csv", export, "SELECT region, units FROM data ORDER BY units DESC")
	require.NoError(t, err)
	assert.Contains(t, out, "north")
	assert.Contains(t, out, "3 row(s)")
	assert.Contains(t, out, "wrote "+export)

	data, err := os.ReadFile(export)
	require.NoError(t, err)
	assert.Equal(t, "region,units\nnorth,10\nwest,7\nsouth,4\n", string(data))
}

func TestQuery_Chart(t *testing.T) {
	csv := isolate(t)

	out, _, err := runArgs(t, "query", "--db", csv, "--chart", "bar", "--x", "region", "--y", "units", "SELECT region, units FROM data")
	require.NoError(t, err)
	assert.Contains(t, out, "north")

	_, _, err = runArgs(t, "query", "--db", csv, "--chart", "pie", "SELECT 1")
	assert.Error(t, err)

	_, _, err = runArgs(t, "query", "--db", csv, "--chart", "bar", "--y", "region", "SELECT region FROM data")
	assert.Error(t, err, "bar charts need a numeric y column")
}

func TestQuery_Error(t *testing.T) {
	csv := isolate(t)

	_, _, err := runArgs(t, "query", "--db", csv, "SELECT * FROM nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query error")

	_, _, err = runArgs(t, "query", "--db", csv)
	assert.ErrorIs(t, err, errUsage)
}

func TestIngest(t *testing.T) {
	csv := isolate(t)
	out := filepath.Join(t.TempDir(), "sales.db")

	stdout, _, err := runArgs(t, "ingest", "-o", out, csv)
	require.NoError(t, err)
	assert.Contains(t, stdout, "→ "+out)
	assert.FileExists(t, out)

	tables, _, err := runArgs(t, "tables", "--db", out)
	require.NoError(t, err)
	assert.Equal(t, "data\n", tables)

	_, _, err = runArgs(t, "ingest", filepath.Join(t.TempDir(), "notes.txt"))
	assert.Error(t, err)
}

func TestAsk_MissingKey(t *testing.T) {
	csv := isolate(t)

	_, _, err := runArgs(t, "ask", "--db", csv, "which region sold most?")
	assert.ErrorIs(t, err, llm.ErrMissingToken)
}

func TestKey(t *testing.T) {
	isolate(t)
	t.Cleanup(func() { _ = keyring.Delete("askdb", "openai_api_key") })

	out, _, err := runArgs(t, "key", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "no API key configured")

	out, _, err = runArgs(t, "key", "set", "sk-1234567wxyz")
	require.NoError(t, err)
	assert.Contains(t, out, "stored")

	out, _, err = runArgs(t, "key", "show")
	require.NoError(t, err)
	assert.Equal(t, "sk-1******wxyz (from keyring)\n", out)

	_, _, err = runArgs(t, "key", "delete")
	require.NoError(t, err)
	out, _, err = runArgs(t, "key", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "no API key configured")

	_, _, err = runArgs(t, "key", "rotate")
	assert.ErrorIs(t, err, errUsage)
}

func TestConfigInit(t *testing.T) {
	isolate(t)
	path, err := config.Path()
	require.NoError(t, err)

	out, _, err := runArgs(t, "config", "init")
	require.NoError(t, err)
	assert.Equal(t, "✓ wrote "+path+"\n", out)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().LLM.Model, cfg.LLM.Model)
	assert.Equal(t, config.Default().Agent, cfg.Agent)

	_, _, err = runArgs(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, _, err = runArgs(t, "config", "init", "--force")
	assert.NoError(t, err)

	custom := filepath.Join(t.TempDir(), "askdb.yaml")
	_, _, err = runArgs(t, "config", "--config", custom, "init")
	require.NoError(t, err)
	assert.FileExists(t, custom)

	_, _, err = runArgs(t, "config", "show")
	assert.ErrorIs(t, err, errUsage)
}
