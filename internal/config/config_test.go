package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"musicosa/internal/config"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadExplicitPathResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
start_from = 2
artifacts_folder = "out"

[stage_1]
forms_folder = "my-forms"
`)

	cfg, resolved, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, path)
	}
	if cfg.StartFrom != 2 {
		t.Fatalf("unexpected start_from: %d", cfg.StartFrom)
	}
	if cfg.ArtifactsFolder != filepath.Join(dir, "out") {
		t.Fatalf("unexpected artifacts folder: %q", cfg.ArtifactsFolder)
	}
	if cfg.Stage1.FormsFolder != filepath.Join(dir, "my-forms") {
		t.Fatalf("unexpected forms folder: %q", cfg.Stage1.FormsFolder)
	}
	if cfg.DatabasePath != filepath.Join(dir, "musicosa.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath)
	}
	if cfg.Ranking.TieBreak != config.TieBreakRandom {
		t.Fatalf("expected random tie-break by default, got %q", cfg.Ranking.TieBreak)
	}
	if cfg.Ranking.SequenceScope != config.SequenceScopeGlobal {
		t.Fatalf("expected global sequence scope by default, got %q", cfg.Ranking.SequenceScope)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
start_from = 1
unexpected = true
`)
	if _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "unexpected") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, _, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, config.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadFindsConfigInParentDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "start_from = 3\n")
	child := filepath.Join(dir, "child")
	if err := os.MkdirAll(child, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Chdir(child)

	cfg, resolved, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.StartFrom != 3 {
		t.Fatalf("unexpected start_from: %d", cfg.StartFrom)
	}
	if filepath.Base(resolved) != config.FileName {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
}

func TestLoadWithoutAnyConfigFails(t *testing.T) {
	t.Chdir(filepath.Join(t.TempDir()))
	if _, _, err := config.Load(""); !errors.Is(err, config.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDatabasePathEnvFallback(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MUSICOSA_DB_PATH", filepath.Join(dir, "env.db"))
	path := writeConfig(t, dir, "start_from = 1\n")

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.DatabasePath != filepath.Join(dir, "env.db") {
		t.Fatalf("expected env database path, got %q", cfg.DatabasePath)
	}
	if cfg.LockPath() != filepath.Join(dir, "env.db.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"start_from low", func(c *config.Config) { c.StartFrom = 0 }, "start_from"},
		{"start_from high", func(c *config.Config) { c.StartFrom = 7 }, "start_from"},
		{"tie break", func(c *config.Config) { c.Ranking.TieBreak = "coin" }, "ranking.tie_break"},
		{"scope", func(c *config.Config) { c.Ranking.SequenceScope = "world" }, "ranking.sequence_scope"},
		{"retry attempts", func(c *config.Config) { c.Stage4.GenRetryAttempts = 0 }, "stage_4.gen_retry_attempts"},
		{"templates url", func(c *config.Config) { c.Stage4.TemplatesAPIURL = "ftp://host/x" }, "stage_4.templates_api_url"},
		{"transition", func(c *config.Config) {
			c.StitchFinalVideo = true
			c.Stage6.TransitionDuration = 6
		}, "stage_6.transition_duration"},
		{"transition type", func(c *config.Config) {
			c.StitchFinalVideo = true
			c.Stage6.TransitionType = "spin"
		}, "stage_6.transition_type"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	var cfg config.Config
	decoder := toml.NewDecoder(strings.NewReader(config.SampleConfig()))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		t.Fatalf("sample config decode failed: %v", err)
	}
	if cfg.StartFrom != 1 {
		t.Fatalf("unexpected sample start_from: %d", cfg.StartFrom)
	}
}

func TestCreateSampleWritesLoadableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", config.FileName)
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, err := config.Load(path); err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
}
