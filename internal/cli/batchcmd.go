package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// BatchFile is the document read by the batch command.
type BatchFile struct {
	Workers int              `yaml:"workers"`
	Tasks   []map[string]any `yaml:"tasks"`
}

// runWideKeys apply to the whole run and are rejected inside a task entry.
var runWideKeys = map[string]string{
	"formatter": "formatter",
	"strict":    "strict",
	"workers":   "workers",
	"verbose":   "verbose",
	"logfile":   "logFile",
}

var batchRunner = runBatch

func newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run several generation tasks from a batch file",
		Long: "Run every task listed in a YAML batch file over a bounded worker pool. " +
			"Each task overlays its own fields on the resolved base configuration; a failing task never stops the others.",
		Example: strings.TrimSpace(`  honogen batch --file batch.yaml
  honogen --config honogen.yaml batch --file batch.yaml --workers 4 --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, configs, err := resolveBatchConfigs(cmd)
			if err != nil {
				return err
			}
			return batchRunner(cmd.Context(), base, configs, streams{out: cmd.OutOrStdout(), err: cmd.ErrOrStderr()})
		},
	}

	flags := cmd.Flags()
	flags.StringP("file", "f", "", "Batch file listing tasks (YAML)")
	registerGenerateFlags(flags)
	return cmd
}

func runBatch(ctx context.Context, base *GenerateConfig, configs []GenerateConfig, s streams) error {
	return runConfigs(ctx, base, configs, s)
}

// resolveBatchConfigs reads the batch file and builds one config per task.
// Layers per task: defaults, environment, config file, the task entry, then
// flags.
func resolveBatchConfigs(cmd *cobra.Command) (*GenerateConfig, []GenerateConfig, error) {
	flags := cmd.Flags()
	path, err := flags.GetString("file")
	if err != nil {
		return nil, nil, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil, newUsageError("batch: --file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, newUsageError(fmt.Sprintf("batch: read %q: %v", path, err))
	}
	var file BatchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, newUsageError(fmt.Sprintf("batch: parse %q: %v", path, err))
	}
	if len(file.Tasks) == 0 {
		return nil, nil, newUsageError(fmt.Sprintf("batch: %q lists no tasks", path))
	}

	base, err := resolveBaseConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	if file.Workers != 0 {
		base.Workers = file.Workers
	}

	configs := make([]GenerateConfig, 0, len(file.Tasks))
	for i, entry := range file.Tasks {
		source := fmt.Sprintf("batch task %d", i+1)
		for key := range entry {
			if name, ok := runWideKeys[normalizeKey(key)]; ok {
				return nil, nil, newUsageError(fmt.Sprintf("%s: %q applies to the whole batch and cannot be set per task", source, name))
			}
		}
		cfg := base
		cfg.Targets = append([]string(nil), base.Targets...)
		if err := applyConfigMap(&cfg, entry, source); err != nil {
			return nil, nil, err
		}
		if err := applyFlagOverrides(flags, &cfg); err != nil {
			return nil, nil, err
		}
		cfg.normalize()
		if err := cfg.validate(); err != nil {
			return nil, nil, newUsageError(fmt.Sprintf("%s: %v", source, err))
		}
		configs = append(configs, cfg)
	}

	if err := applyFlagOverrides(flags, &base); err != nil {
		return nil, nil, err
	}
	base.normalize()
	return &base, configs, nil
}
