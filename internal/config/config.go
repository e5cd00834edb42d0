// Package config loads sql-lineage settings from defaults, an optional
// YAML file, SQLLINEAGE_ environment variables and command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"sql-lineage/internal/render"
)

// Config file names looked up in the working directory.
const (
	ConfigFileName    = "sql-lineage.yaml"
	ConfigFileNameAlt = "sql-lineage.yml"
)

// EnvPrefix prefixes environment overrides, e.g. SQLLINEAGE_QUERIES_DIR.
const EnvPrefix = "SQLLINEAGE_"

// Default configuration values.
const (
	DefaultQueriesDir     = "resources/queries"
	DefaultMappingsFile   = "resources/mappings.csv"
	DefaultRelationsFile  = "resources/relations.csv"
	DefaultOutputDir      = "output"
	DefaultDiagramName    = "diagram"
	DefaultFormat         = "svg"
	DefaultUnparsableFile = "unparsable_queries.csv"
	DefaultRankDir        = "LR"
	DefaultLogFormat      = "text"
)

var (
	DefaultExtensions = []string{"sql", "sh"}
	DefaultExcludes   = []string{".git", "vendor"}
)

var listKeys = map[string]struct{}{
	"extensions": {},
	"excludes":   {},
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Config holds all run settings.
type Config struct {
	QueriesDir     string   `koanf:"queries_dir"`
	Extensions     []string `koanf:"extensions"`
	Excludes       []string `koanf:"excludes"`
	Gitignore      bool     `koanf:"gitignore"`
	MappingsFile   string   `koanf:"mappings_file"`
	RelationsFile  string   `koanf:"relations_file"`
	OutputDir      string   `koanf:"output_dir"`
	DiagramName    string   `koanf:"diagram_name"`
	Format         string   `koanf:"format"`
	UnparsableFile string   `koanf:"unparsable_file"`
	RankDir        string   `koanf:"rankdir"`
	Verbose        bool     `koanf:"verbose"`
	LogFormat      string   `koanf:"log_format"`
}

// DiagramBase is the diagram path without its format extension.
func (c *Config) DiagramBase() string {
	return filepath.Join(c.OutputDir, c.DiagramName)
}

// UnparsablePath is where the unparsable statements report is written.
func (c *Config) UnparsablePath() string {
	return filepath.Join(c.OutputDir, c.UnparsableFile)
}

// Validate checks the settings a run cannot do without.
func (c *Config) Validate() error {
	if c.QueriesDir == "" {
		return fmt.Errorf("queries_dir is required")
	}
	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one file extension is required")
	}
	if !render.IsSupported(c.Format) {
		return fmt.Errorf("unsupported format %q (supported: %s)", c.Format, strings.Join(render.Formats, ", "))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unsupported log_format %q (supported: text, json)", c.LogFormat)
	}
	return nil
}

// Logger builds the run logger: text or JSON on stderr, debug level when verbose.
func (c *Config) Logger() *slog.Logger {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// findConfigFile returns the explicit path or the first config file found
// in the working directory. Returns empty string if none exists.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads configuration and returns it with the config file used, if any.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"queries_dir":     DefaultQueriesDir,
		"extensions":      DefaultExtensions,
		"excludes":        DefaultExcludes,
		"gitignore":       true,
		"mappings_file":   DefaultMappingsFile,
		"relations_file":  DefaultRelationsFile,
		"output_dir":      DefaultOutputDir,
		"diagram_name":    DefaultDiagramName,
		"format":          DefaultFormat,
		"unparsable_file": DefaultUnparsableFile,
		"rankdir":         DefaultRankDir,
		"verbose":         false,
		"log_format":      DefaultLogFormat,
	}, "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: SQLLINEAGE_OUTPUT_DIR -> output_dir, list keys split on commas
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Format = strings.ToLower(cfg.Format)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}
