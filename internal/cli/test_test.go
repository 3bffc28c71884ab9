package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: single_author
description: "creating an author makes one revision"
steps:
  - submit:
      entities:
        a: { type: author, nameSection: { name: A, sortName: A } }
assertions:
  - type: table_count
    table: revision
    count: 1
`

const failingScenario = `
name: wrong_count
description: "assertion failure is reported"
steps:
  - submit:
      entities:
        a: { type: author, nameSection: { name: A, sortName: A } }
assertions:
  - type: table_count
    table: revision
    count: 2
`

func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestTestCommand_Pass(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"single.yaml": passingScenario})

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ single_author")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommand_Fail(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"single.yaml": passingScenario,
		"wrong.yaml":  failingScenario,
	})

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "Expected: 2 rows")
}

func TestTestCommand_GoldenUpdateAndCompare(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"single.yaml": passingScenario})
	golden := filepath.Join(dir, "golden", "single.golden")

	out, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ single_author (golden updated)")

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario":"single_author"`)

	_, err = execute(t, "test", dir)
	require.NoError(t, err, "the snapshot matches its own golden file")

	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))
	out, err = execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "snapshot does not match golden file")
}

func TestTestCommand_SingleFileAndFilter(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"single.yaml": passingScenario,
		"wrong.yaml":  failingScenario,
	})

	_, err := execute(t, "test", filepath.Join(dir, "single.yaml"))
	require.NoError(t, err)

	_, err = execute(t, "test", dir, "--filter", "sing*")
	require.NoError(t, err)
}

func TestTestCommand_JSON(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"single.yaml": passingScenario})

	out, err := execute(t, "--format", "json", "test", dir)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "single_author", resp.Data.Scenarios[0].Name)
}

func TestTestCommand_HarnessScenarios(t *testing.T) {
	out, err := execute(t, "test", filepath.Join("..", "harness", "testdata", "scenarios"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "3 passed, 0 failed, 3 total")
}

func TestTestCommand_MissingPath(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "merge.golden"), goldenFilePath(filepath.Join("s", "merge.yaml")))
}
