package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureGenerate swaps the generate runner for one that records the
// resolved config. Tests using it must not run in parallel.
func captureGenerate(t *testing.T) **GenerateConfig {
	t.Helper()
	var captured *GenerateConfig
	generateRunner = func(_ context.Context, cfg *GenerateConfig, _ streams) error {
		captured = cfg
		return nil
	}
	t.Cleanup(func() { generateRunner = runGenerate })
	return &captured
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	return root.Execute()
}

func TestGenerateConfigFromFlags(t *testing.T) {
	captured := captureGenerate(t)

	require.NoError(t, execute(t,
		"--verbose",
		"--log-file", "run.log",
		"generate",
		"--input", "spec.yaml",
		"--out", "./build",
		"--targets", "zod-openapi,RPC,swr",
		"--split",
		"--export-types",
		"--schema-case", "camel",
		"--base-path", "/api",
		"--test-stubs",
		"--client-import", "@acme/client",
		"--formatter", "prettier",
		"--workers", "3",
		"--include-tags", "foo,bar",
		"--exclude-tags", "baz",
		"--methods", "get,post",
		"--paths", "^/todo",
		"--strict",
		"--dry-run",
		"--force",
	))

	cfg := *captured
	require.NotNil(t, cfg)
	assert.Equal(t, "spec.yaml", cfg.Input)
	assert.Equal(t, "./build", cfg.Out)
	assert.Equal(t, []string{"zod-openapi", "RPC", "swr"}, cfg.Targets)
	assert.True(t, cfg.Split)
	assert.True(t, cfg.ExportTypes)
	assert.Equal(t, "camel", cfg.SchemaCase)
	assert.Equal(t, "/api", cfg.BasePath)
	assert.True(t, cfg.TestStubs)
	assert.Equal(t, "@acme/client", cfg.ClientImport)
	assert.Equal(t, "prettier", cfg.Formatter)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"foo", "bar"}, cfg.IncludeTags)
	assert.Equal(t, []string{"baz"}, cfg.ExcludeTags)
	assert.Equal(t, []string{"get", "post"}, cfg.Methods)
	assert.Equal(t, []string{"^/todo"}, cfg.PathPatterns)
	assert.True(t, cfg.Strict)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.Force)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "run.log", cfg.LogFile)

	opts := cfg.emitterOptions()
	assert.True(t, opts.Split)
	assert.True(t, opts.ExportSchemas, "split output always exports")
	assert.Equal(t, "@acme/client", opts.ClientImport)
	assert.Equal(t, "./index", opts.RoutesImport)
	assert.Len(t, cfg.buildOptions(), 4)
}

func TestGenerateConfigDefaults(t *testing.T) {
	captured := captureGenerate(t)
	require.NoError(t, execute(t, "generate", "--input", "spec.yaml"))

	cfg := *captured
	assert.Equal(t, "generated", cfg.Out)
	assert.Equal(t, []string{"zod-openapi"}, cfg.Targets)
	assert.True(t, cfg.ExportSchemas)
	assert.Equal(t, "pascal", cfg.TypeCase)
	assert.Equal(t, "passthrough", cfg.Formatter)
	assert.Zero(t, cfg.Workers)
}

func TestGenerateConfigPrecedence(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := strings.TrimSpace(`input: config-spec.yaml
out: from-config
targets: [handlers]
include-tags:
  - cfgFoo
exclude_tags: cfgBar
basePath: /v1
dryRun: true
force: false
verbose: true
`) + "\n"
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o600))

	t.Setenv("HONOGEN_OUT", "from-env")
	t.Setenv("HONOGEN_SPLIT", "true")
	t.Setenv("HONOGEN_TARGETS", "rpc,swr")
	t.Setenv("HONOGEN_CLIENT_IMPORT", "@env/client")

	captured := captureGenerate(t)
	require.NoError(t, execute(t,
		"--config", configPath,
		"generate",
		"--input", "flag-spec.yaml",
		"--targets", "zod-openapi",
		"--include-tags", "flagTag",
		"--dry-run=false",
		"--force",
	))

	cfg := *captured
	require.NotNil(t, cfg)
	assert.Equal(t, "flag-spec.yaml", cfg.Input, "flags beat the file")
	assert.Equal(t, []string{"zod-openapi"}, cfg.Targets)
	assert.Equal(t, "from-config", cfg.Out, "the file beats the environment")
	assert.Equal(t, "/v1", cfg.BasePath)
	assert.True(t, cfg.Split, "the environment beats defaults")
	assert.Equal(t, "@env/client", cfg.ClientImport)
	assert.Equal(t, []string{"flagTag"}, cfg.IncludeTags)
	assert.Equal(t, []string{"cfgBar"}, cfg.ExcludeTags)
	assert.False(t, cfg.DryRun)
	assert.True(t, cfg.Force)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, configPath, cfg.ConfigPath)
}

func TestGenerateConfigFromEnvConfigPath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "honogen.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("input: env-config.yaml\n"), 0o600))
	t.Setenv("HONOGEN_CONFIG", configPath)

	captured := captureGenerate(t)
	require.NoError(t, execute(t, "generate"))
	assert.Equal(t, "env-config.yaml", (*captured).Input)
}

func TestGenerateConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()
	badKey := filepath.Join(tmpDir, "bad.yaml")
	require.NoError(t, os.WriteFile(badKey, []byte("unknown: value\n"), 0o600))
	badType := filepath.Join(tmpDir, "type.yaml")
	require.NoError(t, os.WriteFile(badType, []byte("split: [1]\n"), 0o600))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown key", []string{"--config", badKey, "generate", "--input", "spec.yaml"}, "unknown field"},
		{"wrong type", []string{"--config", badType, "generate", "--input", "spec.yaml"}, `field "split"`},
		{"missing config", []string{"--config", filepath.Join(tmpDir, "nope.yaml"), "generate", "--input", "spec.yaml"}, "read config file"},
		{"missing input", []string{"generate"}, "--input is required"},
		{"unknown target", []string{"generate", "--input", "s.yaml", "--targets", "graphql"}, "graphql"},
		{"bad casing", []string{"generate", "--input", "s.yaml", "--type-case", "snake"}, "unsupported --type-case"},
		{"bad formatter", []string{"generate", "--input", "s.yaml", "--formatter", "gofmt"}, "gofmt"},
		{"negative workers", []string{"generate", "--input", "s.yaml", "--workers", "-1"}, "must not be negative"},
		{"tag overlap", []string{"generate", "--input", "s.yaml", "--include-tags", "a,b", "--exclude-tags", "b"}, "overlap: b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := execute(t, tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUsage)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValueHelpers(t *testing.T) {
	t.Parallel()

	list, err := valueAsStringSlice(" a, b ,,c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, list)

	list, err = valueAsStringSlice([]any{"x", "", "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, list)

	_, err = valueAsStringSlice([]any{1})
	assert.ErrorContains(t, err, "element 0")

	b, err := valueAsBool("yes")
	require.NoError(t, err)
	assert.True(t, b)
	_, err = valueAsBool("maybe")
	assert.Error(t, err)

	assert.Equal(t, "dryrun", normalizeKey(" Dry-Run "))
	assert.Equal(t, []string{"a", "b"}, sanitizeList([]string{" a", "b", "a", " "}))
	assert.Equal(t, []string{"b"}, intersect([]string{"a", "b"}, []string{"b", "c"}))
}
