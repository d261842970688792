package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"musicosa/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.ArtifactsFolder = filepath.Join(base, "artifacts")
	cfgVal.DatabasePath = filepath.Join(base, "musicosa.db")
	cfgVal.Stage1.FormsFolder = filepath.Join(base, "forms")
	cfgVal.Stage1.EntriesFile = filepath.Join(base, "entries.csv")
	cfgVal.Stage6.VideoBitsFolder = filepath.Join(base, "video_bits")
	cfgVal.Ranking.TieBreak = config.TieBreakRandom
	cfgVal.Ranking.Seed = 7

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithStartFrom sets the stage the run resumes from.
func WithStartFrom(stage int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.StartFrom = stage
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, every external binary the
// pipeline calls is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.ScreenshotBinary(), b.cfg.DownloaderBinary(), "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.DatabasePath)
}
