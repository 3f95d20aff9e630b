package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample honogen configuration file",
		Long:  "Scaffold a commented honogen configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			return initRunner(cmd.Context(), &InitConfig{OutputPath: out, Force: force}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("out", "honogen.yaml", "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")
	return cmd
}

func runInit(_ context.Context, cfg *InitConfig, stdout io.Writer) error {
	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = "honogen.yaml"
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force && st.Mode().IsRegular() {
		return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	tmp := absPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	if err := os.Rename(tmp, absPath); err != nil {
		_ = os.Remove(tmp)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML documents every key the config file accepts.
const sampleConfigYAML = `# honogen configuration (YAML)
# All fields are optional. Precedence: flags > this file > HONOGEN_* environment > defaults.

# Path or URL to the OpenAPI 3.x document (Swagger 2.0 is converted).
# input: ./openapi.yaml

# Output directory. Defaults to ./generated.
# out: ./src/generated

# Targets to emit: zod-openapi, handlers, rpc, tanstack-query, vue-query,
# svelte-query, swr.
# targets: [zod-openapi, handlers, rpc]

# One file per component under schemas/, parameters/, ... with barrel indexes.
# split: false

# Identifier casing (pascal|camel).
# schemaCase: pascal
# typeCase: pascal

# Export declarations and z.infer type aliases.
# exportSchemas: true
# exportTypes: false

# Prefix added to every route path.
# basePath: /api

# Write an empty vitest file next to each handler file.
# testStubs: false

# Modules the clients import the Hono RPC client and route declarations from.
# clientImport: ./client
# routesImport: ./index

# Formatter for generated files (passthrough|prettier).
# formatter: passthrough

# Concurrent tasks. Defaults to the number of CPUs.
# workers: 4

# Operation filters.
# includeTags: [public]
# excludeTags: [internal]
# methods: [get, post]
# paths: ["^/todo"]

# Fail on documents that do not validate.
# strict: false

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite a non-empty output directory.
# force: false

# Verbose logging, plus JSON logs in a file.
# verbose: false
# logFile: ./honogen.log
`
