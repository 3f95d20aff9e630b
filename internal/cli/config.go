package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/honogen/internal/emitter"
	"github.com/mark3labs/honogen/internal/format"
	"github.com/mark3labs/honogen/internal/naming"
	"github.com/mark3labs/honogen/internal/spec"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "HONOGEN_"

// GenerateConfig captures all inputs that influence generation after
// merging defaults, environment, config file values, and CLI overrides.
type GenerateConfig struct {
	Input         string   `env:"INPUT"`
	Out           string   `env:"OUT"`
	Targets       []string `env:"TARGETS" envSeparator:","`
	Split         bool     `env:"SPLIT"`
	TypeCase      string   `env:"TYPE_CASE"`
	SchemaCase    string   `env:"SCHEMA_CASE"`
	ExportTypes   bool     `env:"EXPORT_TYPES"`
	ExportSchemas bool     `env:"EXPORT_SCHEMAS"`
	BasePath      string   `env:"BASE_PATH"`
	TestStubs     bool     `env:"TEST_STUBS"`
	ClientImport  string   `env:"CLIENT_IMPORT"`
	RoutesImport  string   `env:"ROUTES_IMPORT"`
	Formatter     string   `env:"FORMATTER"`
	Workers       int      `env:"WORKERS"`
	IncludeTags   []string `env:"INCLUDE_TAGS" envSeparator:","`
	ExcludeTags   []string `env:"EXCLUDE_TAGS" envSeparator:","`
	Methods       []string `env:"METHODS" envSeparator:","`
	PathPatterns  []string `env:"PATHS" envSeparator:","`
	Strict        bool     `env:"STRICT"`
	DryRun        bool     `env:"DRY_RUN"`
	Force         bool     `env:"FORCE"`
	Verbose       bool     `env:"VERBOSE"`
	LogFile       string   `env:"LOG_FILE"`
	ConfigPath    string   `env:"CONFIG"`
}

func defaultGenerateConfig() GenerateConfig {
	opts := emitter.DefaultOptions()
	return GenerateConfig{
		Out:           "generated",
		Targets:       []string{string(emitter.TargetZodOpenAPI)},
		TypeCase:      opts.TypeCase.String(),
		SchemaCase:    opts.SchemaCase.String(),
		ExportSchemas: opts.ExportSchemas,
		ClientImport:  opts.ClientImport,
		RoutesImport:  opts.RoutesImport,
		Formatter:     "passthrough",
	}
}

// resolveBaseConfig applies defaults, the environment and the config file.
// Flags are applied by the caller since each command owns its flag set.
func resolveBaseConfig(flags *pflag.FlagSet) (GenerateConfig, error) {
	cfg := defaultGenerateConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, newUsageError(fmt.Sprintf("environment: %v", err))
	}

	configPath := cfg.ConfigPath
	if flags.Changed("config") {
		value, err := flags.GetString("config")
		if err != nil {
			return cfg, err
		}
		configPath = value
	}
	configPath = strings.TrimSpace(configPath)
	cfg.ConfigPath = configPath
	if configPath != "" {
		if err := applyConfigFile(&cfg, configPath); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func applyConfigFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}
	return applyConfigMap(cfg, raw, fmt.Sprintf("config file %q", path))
}

// applyConfigMap overlays raw onto cfg. Keys are matched case-insensitively
// with dashes and underscores ignored.
func applyConfigMap(cfg *GenerateConfig, raw map[string]any, source string) error {
	for key, value := range raw {
		if err := applyConfigValue(cfg, normalizeKey(key), value); err != nil {
			if err == errUnknownKey {
				return newUsageError(fmt.Sprintf("%s: unknown field %q", source, key))
			}
			return newUsageError(fmt.Sprintf("%s: field %q: %v", source, key, err))
		}
	}
	return nil
}

var errUnknownKey = fmt.Errorf("unknown key")

func applyConfigValue(cfg *GenerateConfig, key string, value any) error {
	str := func(dst *string) error {
		v, err := valueAsString(value)
		*dst = v
		return err
	}
	boolean := func(dst *bool) error {
		v, err := valueAsBool(value)
		*dst = v
		return err
	}
	list := func(dst *[]string) error {
		v, err := valueAsStringSlice(value)
		*dst = sanitizeList(v)
		return err
	}
	switch key {
	case "input":
		return str(&cfg.Input)
	case "out":
		return str(&cfg.Out)
	case "targets", "target":
		return list(&cfg.Targets)
	case "split":
		return boolean(&cfg.Split)
	case "typecase":
		return str(&cfg.TypeCase)
	case "schemacase":
		return str(&cfg.SchemaCase)
	case "exporttypes":
		return boolean(&cfg.ExportTypes)
	case "exportschemas":
		return boolean(&cfg.ExportSchemas)
	case "basepath":
		return str(&cfg.BasePath)
	case "teststubs":
		return boolean(&cfg.TestStubs)
	case "clientimport":
		return str(&cfg.ClientImport)
	case "routesimport":
		return str(&cfg.RoutesImport)
	case "formatter":
		return str(&cfg.Formatter)
	case "workers":
		v, err := valueAsInt(value)
		cfg.Workers = v
		return err
	case "includetags":
		return list(&cfg.IncludeTags)
	case "excludetags":
		return list(&cfg.ExcludeTags)
	case "methods":
		return list(&cfg.Methods)
	case "paths":
		return list(&cfg.PathPatterns)
	case "strict":
		return boolean(&cfg.Strict)
	case "dryrun":
		return boolean(&cfg.DryRun)
	case "force":
		return boolean(&cfg.Force)
	case "verbose":
		return boolean(&cfg.Verbose)
	case "logfile":
		return str(&cfg.LogFile)
	}
	return errUnknownKey
}

// registerGenerateFlags declares the flags shared by generate and batch.
func registerGenerateFlags(flags *pflag.FlagSet) {
	flags.StringP("out", "o", "", "Output directory (default \"generated\")")
	flags.StringSlice("targets", nil, "Targets to emit: zod-openapi, handlers, rpc, tanstack-query, vue-query, svelte-query, swr")
	flags.Bool("split", false, "Write one file per component with barrel indexes")
	flags.String("type-case", "", "Casing of exported type names (pascal|camel)")
	flags.String("schema-case", "", "Casing of schema identifiers (pascal|camel)")
	flags.Bool("export-types", false, "Export z.infer type aliases for schemas")
	flags.Bool("export-schemas", true, "Export component declarations")
	flags.String("base-path", "", "Prefix added to every route path")
	flags.Bool("test-stubs", false, "Write an empty test file next to each handler file")
	flags.String("client-import", "", "Module exporting the Hono RPC client")
	flags.String("routes-import", "", "Module exporting the route declarations")
	flags.String("formatter", "", "Formatter for generated files (passthrough|prettier)")
	flags.Int("workers", 0, "Concurrent tasks (default GOMAXPROCS)")
	flags.StringSlice("include-tags", nil, "Only include operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude operations with these tags")
	flags.StringSlice("methods", nil, "Only include these HTTP methods")
	flags.StringSlice("paths", nil, "Only include paths matching these regular expressions")
	flags.Bool("strict", false, "Fail on documents that do not validate")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")
}

// applyFlagOverrides copies every flag the user set onto cfg.
func applyFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"input": &cfg.Input, "out": &cfg.Out, "type-case": &cfg.TypeCase,
		"schema-case": &cfg.SchemaCase, "base-path": &cfg.BasePath,
		"client-import": &cfg.ClientImport, "routes-import": &cfg.RoutesImport,
		"formatter": &cfg.Formatter, "log-file": &cfg.LogFile,
	}
	bools := map[string]*bool{
		"split": &cfg.Split, "export-types": &cfg.ExportTypes, "export-schemas": &cfg.ExportSchemas,
		"test-stubs": &cfg.TestStubs, "strict": &cfg.Strict, "dry-run": &cfg.DryRun,
		"force": &cfg.Force, "verbose": &cfg.Verbose,
	}
	lists := map[string]*[]string{
		"targets": &cfg.Targets, "include-tags": &cfg.IncludeTags, "exclude-tags": &cfg.ExcludeTags,
		"methods": &cfg.Methods, "paths": &cfg.PathPatterns,
	}

	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if dst, ok := strs[f.Name]; ok {
			*dst, err = flags.GetString(f.Name)
			*dst = strings.TrimSpace(*dst)
			return
		}
		if dst, ok := bools[f.Name]; ok {
			*dst, err = flags.GetBool(f.Name)
			return
		}
		if dst, ok := lists[f.Name]; ok {
			var v []string
			v, err = flags.GetStringSlice(f.Name)
			*dst = sanitizeList(v)
			return
		}
		if f.Name == "workers" {
			cfg.Workers, err = flags.GetInt(f.Name)
		}
	})
	return err
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Out = strings.TrimSpace(c.Out)
	c.BasePath = strings.TrimSpace(c.BasePath)
	c.Formatter = strings.ToLower(strings.TrimSpace(c.Formatter))
	c.Targets = sanitizeList(c.Targets)
	c.IncludeTags = sanitizeList(c.IncludeTags)
	c.ExcludeTags = sanitizeList(c.ExcludeTags)
	c.Methods = sanitizeList(c.Methods)
	c.PathPatterns = sanitizeList(c.PathPatterns)
	if c.Out == "" {
		c.Out = "generated"
	}
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag, config file or " + EnvPrefix + "INPUT)")
	}
	if len(c.Targets) == 0 {
		return newUsageError("generate: at least one target is required")
	}
	for _, t := range c.Targets {
		if _, err := emitter.ParseTarget(t); err != nil {
			return newUsageError("generate: " + err.Error())
		}
	}
	for name, value := range map[string]string{"type-case": c.TypeCase, "schema-case": c.SchemaCase} {
		if _, ok := naming.ParseCasing(value); !ok {
			return newUsageError(fmt.Sprintf("generate: unsupported --%s %q (allowed: pascal, camel)", name, value))
		}
	}
	if _, err := format.New(c.Formatter); err != nil {
		return newUsageError("generate: " + err.Error())
	}
	if c.Workers < 0 {
		return newUsageError("generate: --workers must not be negative")
	}
	if overlap := intersect(c.IncludeTags, c.ExcludeTags); len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}
	return nil
}

// emitterOptions converts the validated config into rendering options.
func (c *GenerateConfig) emitterOptions() emitter.Options {
	opts := emitter.DefaultOptions()
	opts.Split = c.Split
	opts.ExportSchemas = c.ExportSchemas || c.Split
	opts.ExportTypes = c.ExportTypes
	opts.TypeCase, _ = naming.ParseCasing(c.TypeCase)
	opts.SchemaCase, _ = naming.ParseCasing(c.SchemaCase)
	opts.BasePath = c.BasePath
	opts.TestStubs = c.TestStubs
	if c.ClientImport != "" {
		opts.ClientImport = c.ClientImport
	}
	if c.RoutesImport != "" {
		opts.RoutesImport = c.RoutesImport
	}
	return opts
}

func (c *GenerateConfig) buildOptions() []spec.BuildOption {
	methods := make([]spec.HttpMethod, len(c.Methods))
	for i, m := range c.Methods {
		methods[i] = spec.HttpMethod(m)
	}
	return []spec.BuildOption{
		spec.WithIncludeTags(c.IncludeTags),
		spec.WithExcludeTags(c.ExcludeTags),
		spec.WithMethods(methods),
		spec.WithPathPatterns(c.PathPatterns),
	}
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n", "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

// sanitizeList trims entries and drops blanks and duplicates.
func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}
