package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSpecYAML = "" +
	"openapi: 3.0.0\n" +
	"info:\n" +
	"  title: Test API\n" +
	"  version: '1.0.0'\n" +
	"paths:\n" +
	"  /hello:\n" +
	"    get:\n" +
	"      summary: Hello\n" +
	"      responses:\n" +
	"        '200':\n" +
	"          description: ok\n"

func writeSpec(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGeneratePipeline_DryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	specPath := writeSpec(t, dir, "spec.yaml", minimalSpecYAML)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "generate", "--input", specPath, "--out", outDir,
		"--targets", "zod-openapi,handlers,rpc,tanstack-query", "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "Planned writes to "+outDir+" (6 files):")
	for _, p := range []string{"app.ts", "handlers/hello.ts", "handlers/index.ts", "index.ts", "rpc.ts", "tanstack-query.ts"} {
		assert.Contains(t, out, "- "+p+"\n")
	}
	_, err = os.Stat(outDir)
	assert.True(t, os.IsNotExist(err), "dry run must not create the output directory")
}

func TestGeneratePipeline_Writes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	specPath := writeSpec(t, dir, "spec.yaml", minimalSpecYAML)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "generate", "--input", specPath, "--out", outDir, "--targets", "zod-openapi,rpc")
	require.NoError(t, err)
	assert.Contains(t, out, "Generated 2/2 tasks")

	index, err := os.ReadFile(filepath.Join(outDir, "index.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "export const getHelloRoute = createRoute({")
	rpc, err := os.ReadFile(filepath.Join(outDir, "rpc.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(rpc), "export async function getHello(")

	_, err = run(t, "generate", "--input", specPath, "--out", outDir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), "is not empty")

	_, err = run(t, "generate", "--input", specPath, "--out", outDir, "--force")
	assert.NoError(t, err)
}

func TestGeneratePipeline_LogFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	specPath := writeSpec(t, dir, "spec.yaml", minimalSpecYAML)
	logPath := filepath.Join(dir, "logs", "run.log")

	_, err := run(t, "--log-file", logPath, "generate", "--input", specPath, "--dry-run")
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"batch finished"`)
	assert.Contains(t, string(data), `"run_id":`)
}

func TestGeneratePipeline_Failures(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	empty := writeSpec(t, dir, "empty.yaml", "openapi: 3.0.0\ninfo: {title: T, version: '1'}\npaths: {}\n")

	_, err := run(t, "generate", "--input", filepath.Join(dir, "missing.yaml"), "--dry-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), "0/1 tasks succeeded")
	assert.Contains(t, err.Error(), "- missing:zod-openapi: spec:")

	_, err = run(t, "generate", "--input", empty, "--targets", "zod-openapi,rpc", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0/2 tasks succeeded")
	assert.Contains(t, err.Error(), "nothing to generate")
}

func TestBatchCommand(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := writeSpec(t, dir, "a.yaml", minimalSpecYAML)
	b := writeSpec(t, dir, "b.yaml", strings.ReplaceAll(minimalSpecYAML, "/hello", "/bye"))
	outA := filepath.Join(dir, "gen-a")
	outB := filepath.Join(dir, "gen-b")
	batchFile := writeSpec(t, dir, "batch.yaml", strings.Join([]string{
		"workers: 2",
		"tasks:",
		"  - input: " + a,
		"    out: " + outA,
		"    targets: [zod-openapi, rpc]",
		"  - input: " + b,
		"    out: " + outB,
		"    targets: swr",
		"    basePath: /api",
		"",
	}, "\n"))

	out, err := run(t, "batch", "--file", batchFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Generated 3/3 tasks")

	for _, p := range []string{filepath.Join(outA, "index.ts"), filepath.Join(outA, "rpc.ts"), filepath.Join(outB, "swr.ts")} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
	swr, err := os.ReadFile(filepath.Join(outB, "swr.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(swr), `"/api/bye"`)
}

func TestBatchCommand_DryRunPlansPerDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := writeSpec(t, dir, "a.yaml", minimalSpecYAML)
	batchFile := writeSpec(t, dir, "batch.yaml", strings.Join([]string{
		"tasks:",
		"  - {input: " + a + ", out: " + filepath.Join(dir, "one") + "}",
		"  - {input: " + a + ", out: " + filepath.Join(dir, "two") + ", targets: [rpc]}",
		"",
	}, "\n"))

	out, err := run(t, "batch", "--file", batchFile, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Planned writes to "+filepath.Join(dir, "one")+" (1 files):\n- index.ts\n")
	assert.Contains(t, out, "Planned writes to "+filepath.Join(dir, "two")+" (1 files):\n- rpc.ts\n")
}

func TestBatchCommand_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	perTask := writeSpec(t, dir, "per-task.yaml", "tasks:\n  - {input: a.yaml, workers: 3}\n")
	empty := writeSpec(t, dir, "empty.yaml", "workers: 1\n")
	noInput := writeSpec(t, dir, "no-input.yaml", "tasks:\n  - {out: x}\n")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no file", []string{"batch"}, "--file is required"},
		{"run-wide key", []string{"batch", "--file", perTask}, `"workers" applies to the whole batch`},
		{"no tasks", []string{"batch", "--file", empty}, "lists no tasks"},
		{"task without input", []string{"batch", "--file", noInput}, "batch task 1: generate: --input is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUsage)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
