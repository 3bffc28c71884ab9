package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/revision"
)

const twoAuthors = `
entities:
  a:
    type: author
    nameSection: { name: Jane Doe, sortName: "Doe, Jane" }
    identifiers:
      - { typeId: 1, value: Q1 }
  b:
    type: author
    nameSection: { name: J. Doe, sortName: "Doe, J." }
`

// decode unwraps the data field of a JSON CLIResponse into v.
func decode(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestInit(t *testing.T) {
	e := newEnv(t)

	_, err := os.Stat(e.config)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(e.dir, "catalog.db"))
	require.NoError(t, err, "init creates the database")

	_, err = e.run(t, "init")
	require.Error(t, err, "init refuses to overwrite")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSubmitShowHistory(t *testing.T) {
	e := newEnv(t)
	file := e.write(t, "authors.yaml", twoAuthors)

	out, err := e.run(t, "--format", "json", "submit", file, "-m", "import")
	require.NoError(t, err)
	var res revision.Result
	decode(t, out, &res)
	assert.Equal(t, int64(1), res.RevisionID)
	require.Len(t, res.Keys, 2)
	a := res.Keys["a"]

	out, err = e.run(t, "show", a)
	require.NoError(t, err)
	assert.Contains(t, out, "Jane Doe (author) "+a)
	assert.Contains(t, out, "revision: 1")
	assert.Contains(t, out, "Jane Doe (Doe, Jane) [default]")
	assert.Contains(t, out, "type 1: Q1")

	out, err = e.run(t, "--format", "json", "show", a)
	require.NoError(t, err)
	var v model.EntityView
	decode(t, out, &v)
	assert.Equal(t, a, v.BBID)
	assert.Len(t, v.Identifiers, 1)

	out, err = e.run(t, "history", a)
	require.NoError(t, err)
	assert.Contains(t, out, "#1  ")
	assert.Contains(t, out, "editor 1")
	assert.Contains(t, out, "    import")
}

func TestSubmit_TextOutput(t *testing.T) {
	e := newEnv(t)
	file := e.write(t, "authors.yaml", twoAuthors)

	out, err := e.run(t, "submit", file, "--editor", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "revision 1\n  a -> ")
	assert.Contains(t, out, "\n  b -> ")
	assert.Contains(t, out, "touched 2 entities")
}

func TestSubmit_NothingToSave(t *testing.T) {
	e := newEnv(t)
	file := e.write(t, "authors.yaml", twoAuthors)

	out, err := e.run(t, "--format", "json", "submit", file)
	require.NoError(t, err)
	var res revision.Result
	decode(t, out, &res)

	edit := e.write(t, "edit.yaml", `
entities:
  a:
    type: author
    bbid: `+res.Keys["a"]+`
    nameSection: { name: Jane Doe, sortName: "Doe, Jane" }
    identifiers:
      - { typeId: 1, value: Q1 }
`)
	out, err = e.run(t, "submit", edit)
	require.NoError(t, err, "a no-op edit is not a failure")
	assert.Equal(t, "nothing to save\n", out)
}

func TestSubmit_BadFile(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "submit", filepath.Join(e.dir, "missing.yaml"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	typo := e.write(t, "typo.yaml", "entitys: {}\n")
	_, err = e.run(t, "submit", typo)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSubmit_Rejected(t *testing.T) {
	e := newEnv(t)
	file := e.write(t, "bad.yaml", `
entities:
  w:
    type: work
    nameSection: { name: Notes, sortName: Notes }
    relationships:
      - { typeId: 1, source: w, target: nobody }
`)
	out, err := e.run(t, "submit", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [UNRESOLVED_REFERENCE]")
}

func TestMergeResolveDelete(t *testing.T) {
	e := newEnv(t)
	file := e.write(t, "authors.yaml", twoAuthors)

	out, err := e.run(t, "--format", "json", "submit", file)
	require.NoError(t, err)
	var res revision.Result
	decode(t, out, &res)
	a, b := res.Keys["a"], res.Keys["b"]

	out, err = e.run(t, "merge", "--target", b, "--source", a, "-m", "duplicate")
	require.NoError(t, err)
	assert.Equal(t, "merged 1 entity into "+b+" (revision 2)\n", out)

	out, err = e.run(t, "resolve", a)
	require.NoError(t, err)
	assert.Equal(t, b+"\n", out)

	out, err = e.run(t, "--format", "json", "resolve", a)
	require.NoError(t, err)
	var rr ResolveResult
	decode(t, out, &rr)
	assert.Equal(t, ResolveResult{BBID: a, Resolved: b}, rr)

	out, err = e.run(t, "history", a)
	require.NoError(t, err)
	assert.Contains(t, out, "#2  ")
	assert.Contains(t, out, "[merge]  [deleted]  parents #1")

	out, err = e.run(t, "merge", "--target", b, "--source", b)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [INVALID_MERGE]")

	out, err = e.run(t, "delete", b)
	require.NoError(t, err)
	assert.Equal(t, "deleted "+b+" (revision 3)\n", out)

	out, err = e.run(t, "show", b)
	require.NoError(t, err)
	assert.Contains(t, out, "revision: 3\ndeleted")

	out, err = e.run(t, "delete", b)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [ALREADY_DELETED]")
}

func TestMerge_RequiresFlags(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "merge", "--target", "x")
	require.Error(t, err)
}

func TestDatabaseOverride(t *testing.T) {
	e := newEnv(t)
	file := e.write(t, "authors.yaml", twoAuthors)
	other := filepath.Join(e.dir, "other.db")

	_, err := e.run(t, "--db", other, "submit", file)
	require.NoError(t, err)
	_, err = os.Stat(other)
	require.NoError(t, err)

	out, err := e.run(t, "--format", "json", "submit", file)
	require.NoError(t, err)
	var res revision.Result
	decode(t, out, &res)
	assert.Equal(t, int64(1), res.RevisionID, "the configured database was untouched")
}
