package format

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"", "none", "Passthrough"} {
		f, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, "passthrough", f.Name())
	}
	f, err := New("prettier")
	require.NoError(t, err)
	assert.Equal(t, "prettier", f.Name())

	_, err = New("biome")
	assert.Error(t, err)
}

func TestPassthrough(t *testing.T) {
	t.Parallel()
	out, err := Passthrough{}.Format(context.Background(), "index.ts", []byte("a  \r\nb\t\n\n\n"))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(out))
}

func TestPrettier_CommandFailure(t *testing.T) {
	t.Parallel()
	p := &Prettier{Command: []string{filepath.Join(t.TempDir(), "missing-prettier")}}
	_, err := p.Format(context.Background(), "index.ts", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prettier index.ts")
}

func TestOSWriter_WritesAtomically(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w := OSWriter{Dir: dir}
	require.NoError(t, w.Write(context.Background(), "schemas/PetSchema.ts", []byte("export {}\n")))
	require.NoError(t, w.Write(context.Background(), "schemas/PetSchema.ts", []byte("export const a = 1\n")))

	got, err := os.ReadFile(filepath.Join(dir, "schemas", "PetSchema.ts"))
	require.NoError(t, err)
	assert.Equal(t, "export const a = 1\n", string(got))

	entries, err := os.ReadDir(filepath.Join(dir, "schemas"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestOSWriter_RejectsEscapingPaths(t *testing.T) {
	t.Parallel()
	err := OSWriter{Dir: t.TempDir()}.Write(context.Background(), "../evil.ts", []byte("x"))
	assert.ErrorContains(t, err, "escapes")
}

func TestOSWriter_CommitIsAllOrNothing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// A regular file where a directory must go makes staging fail midway.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handlers"), []byte("x"), 0o644))

	err := OSWriter{Dir: dir}.Commit(context.Background(), map[string][]byte{
		"app.ts":            []byte("app\n"),
		"handlers/index.ts": []byte("index\n"),
		"rpc.ts":            []byte("rpc\n"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mkdir")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "nothing but the blocking file may remain")
	assert.Equal(t, "handlers", entries[0].Name())
}

func TestOSWriter_CommitWritesEveryFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, OSWriter{Dir: dir}.Commit(context.Background(), map[string][]byte{
		"index.ts":             []byte("a\n"),
		"schemas/PetSchema.ts": []byte("b\n"),
	}))
	got, err := os.ReadFile(filepath.Join(dir, "schemas", "PetSchema.ts"))
	require.NoError(t, err)
	assert.Equal(t, "b\n", string(got))
	_, err = os.Stat(filepath.Join(dir, "index.ts"))
	assert.NoError(t, err)
}

func TestCheckOutputDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.NoError(t, CheckOutputDir(dir, false))
	assert.NoError(t, CheckOutputDir(filepath.Join(dir, "missing"), false))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("x"), 0o644))
	err := CheckOutputDir(dir, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not empty")
	assert.NoError(t, CheckOutputDir(dir, true))
}

func TestMemWriter(t *testing.T) {
	t.Parallel()
	var w MemWriter
	content := []byte("a")
	require.NoError(t, w.Write(context.Background(), "b.ts", content))
	require.NoError(t, w.Write(context.Background(), "a.ts", []byte("b")))
	content[0] = 'z'
	assert.Equal(t, []string{"a.ts", "b.ts"}, w.Paths())
	assert.Equal(t, "a", string(w.Files()["b.ts"]))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Write(ctx, "c.ts", nil), context.Canceled)
}
