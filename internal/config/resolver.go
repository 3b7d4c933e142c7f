// Package config resolves workspace settings from, in ascending precedence,
// built-in defaults, the YAML config file, JADEHALL_* environment variables,
// and CLI flags. Every resolved value remembers where it came from so the
// CLI can explain the effective configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueSource identifies where a resolved value came from.
type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is a setting plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-level overrides.
type ResolveOptions struct {
	ConfigPath    string
	CLIDBPath     string
	CLIMinTrust   string
	CLIStrictMode string
}

// ResolvedConfig is the effective workspace configuration.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath ResolvedValue `json:"db_path"`

	// MinTrustScore gates auto-apply of extraction results (0-100).
	MinTrustScore ResolvedValue `json:"min_trust_score"`

	// StrictTransitions makes a failed transition check reject the chapter
	// instead of warning.
	StrictTransitions ResolvedValue `json:"strict_transitions"`
}

type fileConfig struct {
	DBPath   string `yaml:"db_path"`
	Analysis struct {
		MinTrustScore     string `yaml:"min_trust_score"`
		StrictTransitions string `yaml:"strict_transitions"`
	} `yaml:"analysis"`
}

// DefaultConfigPath is where the config file lives unless overridden.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".jadehall", "config.yaml")
}

// Resolve layers config file, environment, and CLI values.
func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath:        path,
		MinTrustScore:     ResolvedValue{Value: "75", Source: SourceDefault, From: "built-in default"},
		StrictTransitions: ResolvedValue{Value: "false", Source: SourceDefault, From: "built-in default"},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.MinTrustScore, cfg.Analysis.MinTrustScore, SourceConfig, path)
		apply(&out.StrictTransitions, cfg.Analysis.StrictTransitions, SourceConfig, path)
	}

	applyEnv(&out.DBPath, "JADEHALL_DB")
	applyEnv(&out.MinTrustScore, "JADEHALL_MIN_TRUST")
	applyEnv(&out.StrictTransitions, "JADEHALL_STRICT_TRANSITIONS")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.MinTrustScore, opts.CLIMinTrust, SourceCLI, "--min-trust")
	apply(&out.StrictTransitions, opts.CLIStrictMode, SourceCLI, "--strict")

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}
	return out, nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
