package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestResolve_Defaults(t *testing.T) {
	cfg, err := Resolve(ResolveOptions{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.MinTrustScore.Value != "75" || cfg.MinTrustScore.Source != SourceDefault {
		t.Errorf("MinTrustScore = %+v, want built-in 75", cfg.MinTrustScore)
	}
	if cfg.StrictTransitions.Value != "false" {
		t.Errorf("StrictTransitions = %+v, want false", cfg.StrictTransitions)
	}
	if cfg.DBPath.Value != "" {
		t.Errorf("DBPath = %+v, want empty (store supplies its default)", cfg.DBPath)
	}
}

func TestResolve_ConfigFile(t *testing.T) {
	p := writeConfig(t, "db_path: /tmp/novel.db\nanalysis:\n  min_trust_score: \"80\"\n")
	cfg, err := Resolve(ResolveOptions{ConfigPath: p})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.DBPath.Value != "/tmp/novel.db" || cfg.DBPath.Source != SourceConfig {
		t.Errorf("DBPath = %+v", cfg.DBPath)
	}
	if cfg.MinTrustScore.Value != "80" || cfg.MinTrustScore.Source != SourceConfig {
		t.Errorf("MinTrustScore = %+v", cfg.MinTrustScore)
	}
	if cfg.MinTrustScore.From != p {
		t.Errorf("From = %q, want the config path", cfg.MinTrustScore.From)
	}
}

func TestResolve_EnvOverridesConfig(t *testing.T) {
	p := writeConfig(t, "analysis:\n  min_trust_score: \"80\"\n")
	t.Setenv("JADEHALL_MIN_TRUST", "90")

	cfg, err := Resolve(ResolveOptions{ConfigPath: p})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.MinTrustScore.Value != "90" || cfg.MinTrustScore.Source != SourceEnv {
		t.Errorf("MinTrustScore = %+v, want env 90", cfg.MinTrustScore)
	}
	if cfg.MinTrustScore.From != "JADEHALL_MIN_TRUST" {
		t.Errorf("From = %q", cfg.MinTrustScore.From)
	}
}

func TestResolve_CLIOverridesEnv(t *testing.T) {
	t.Setenv("JADEHALL_DB", "/env/novel.db")

	cfg, err := Resolve(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		CLIDBPath:  "/cli/novel.db",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.DBPath.Value != "/cli/novel.db" || cfg.DBPath.Source != SourceCLI {
		t.Errorf("DBPath = %+v, want the CLI flag to win", cfg.DBPath)
	}
}

func TestResolve_ExpandsHomeInDBPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg, err := Resolve(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		CLIDBPath:  "~/novels/novel.db",
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.DBPath.Value != filepath.Join(home, "novels", "novel.db") {
		t.Errorf("DBPath = %q, want expanded home", cfg.DBPath.Value)
	}
}

func TestResolve_BadYAML(t *testing.T) {
	p := writeConfig(t, "db_path: [unclosed")
	if _, err := Resolve(ResolveOptions{ConfigPath: p}); err == nil {
		t.Fatal("malformed YAML must surface an error")
	}
}
