package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lincheck/internal/checker"
	"lincheck/internal/trace"
)

const (
	goodTrace = "# stack\npush 1 0 10\npush 2 5 15\npop 2 20 30\npop 1 25 35\n"
	badTrace  = "# stack\npush 1 0 1\npush 2 2 3\npop 1 4 5\npop 2 6 7\n"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer

	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestCheck_BoolOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", goodTrace)
	bad := writeFile(t, dir, "bad.txt", badTrace)

	out, err := execute(t, "check", good, bad)
	require.NoError(t, err)
	assert.Equal(t, "true\nfalse\n", out)
}

func TestCheck_Incremental(t *testing.T) {
	t.Parallel()

	bad := writeFile(t, t.TempDir(), "bad.txt", badTrace)

	out, err := execute(t, "check", "--incremental", bad)
	require.NoError(t, err)
	assert.Equal(t, "false 3\n", out)
}

func TestCheck_FailOnViolation(t *testing.T) {
	t.Parallel()

	bad := writeFile(t, t.TempDir(), "bad.txt", badTrace)

	_, err := execute(t, "check", "--fail-on-violation", bad)
	require.ErrorIs(t, err, ErrNotLinearizable)
}

func TestCheck_KindOverride(t *testing.T) {
	t.Parallel()

	path := writeFile(t, t.TempDir(), "q.txt", "enq 1 0 1\nenq 2 2 3\ndeq 1 4 5\ndeq 2 6 7\n")

	out, err := execute(t, "check", "--kind", "queue", path)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	_, err = execute(t, "check", "--kind", "tree", path)
	require.ErrorIs(t, err, checker.ErrUnknownKind)
}

func TestCheck_Errors(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "check")
	require.Error(t, err)

	out, err := execute(t, "check", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Equal(t, "error\n", out)

	good := writeFile(t, t.TempDir(), "good.txt", goodTrace)

	_, err = execute(t, "check", "--format", "xml", good)
	require.Error(t, err)
}

func TestCheck_ConfigFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", goodTrace)
	cfg := writeFile(t, dir, "lincheck.yaml", "output:\n  format: json\n")

	out, err := execute(t, "check", "--config", cfg, good)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{"))
	assert.Contains(t, out, `"linearizable": true`)

	out, err = execute(t, "check", "--config", cfg, "--format", "bool", good)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestGen_ThenCheck(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	for _, kind := range checker.Kinds() {
		path := filepath.Join(dir, kind.String()+".txt")

		_, err := execute(t, "gen", "--kind", kind.String(), "-n", "100", "--max-radius=-1", "--max-size", "8", path)
		require.NoError(t, err)

		tr, err := trace.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, kind, tr.Kind)
		assert.Equal(t, 100, tr.History.Len())

		out, err := execute(t, "check", path)
		require.NoError(t, err)
		assert.Equal(t, "true\n", out, kind.String())
	}
}

func TestGen_Stdout(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "gen", "--kind", "set", "-n", "5", "--non-linearizable")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# set\n"))
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 6)

	_, err = execute(t, "gen", "-n", "5")
	require.Error(t, err)
}

func TestMerge(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.txt", "# stack\npush 1 0 10\npop 2 20 30\n")
	b := writeFile(t, dir, "b.txt", "# stack\npush 2 5 15\npop 1 25 35\n")
	merged := filepath.Join(dir, "merged.txt")

	out, err := execute(t, "merge", "-o", merged, a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "Merged 2 stack histories")

	out, err = execute(t, "check", merged)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "lincheck "+Version))
}
