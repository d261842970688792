package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// FileName is the configuration file looked up when no explicit path is given.
const FileName = "musicosa.toml"

// ErrNotFound reports that no configuration file could be located.
var ErrNotFound = errors.New("config file not found")

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Ranking selects the tie-break policy and sequence numbering scope.
type Ranking struct {
	// TieBreak is "random" or "author_avg_given".
	TieBreak string `toml:"tie_break"`
	// Seed feeds the random tie-break. Zero picks a time based seed.
	Seed int64 `toml:"seed"`
	// SequenceScope is "global" (one counter over every award) or "award"
	// (1..N per award, sequences repeat across awards).
	SequenceScope string `toml:"sequence_scope"`
}

// Metrics controls the Prometheus textfile export written at the end of a run.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// StageOne configures submission ingestion.
type StageOne struct {
	FormsFolder string `toml:"forms_folder"`
	EntriesFile string `toml:"entries_file"`
}

// StageFour configures template image generation.
type StageFour struct {
	TemplatesAPIURL        string `toml:"templates_api_url"`
	PresentationsAPIURL    string `toml:"presentations_api_url"`
	GenRetryAttempts       int    `toml:"gen_retry_attempts"`
	OverwriteTemplates     bool   `toml:"overwrite_templates"`
	OverwritePresentations bool   `toml:"overwrite_presentations"`
	ScreenshotBinary       string `toml:"screenshot_binary"`
}

// StageFive configures video clip acquisition.
type StageFive struct {
	UseCookies       bool   `toml:"use_cookies"`
	CookiesBrowser   string `toml:"cookies_browser"`
	QuietFFmpeg      bool   `toml:"quiet_ffmpeg"`
	DownloaderBinary string `toml:"downloader_binary"`
}

// StageSix configures video bit generation and final video stitching.
type StageSix struct {
	VideoBitsFolder       string  `toml:"video_bits_folder"`
	OverwriteVideoBits    bool    `toml:"overwrite_video_bits"`
	FinalVideoName        string  `toml:"final_video_name"`
	PresentationDuration  float64 `toml:"presentation_duration"`
	TransitionDuration    float64 `toml:"transition_duration"`
	TransitionType        string  `toml:"transition_type"`
	QuietFFmpeg           bool    `toml:"quiet_ffmpeg"`
	QuietFFmpegFinalVideo bool    `toml:"quiet_ffmpeg_final_video"`
}

// Config encapsulates all configuration values for a pipeline run.
//
// Top-level keys select the resume stage, the artifact folder, and the store.
// Each stage that needs tuning owns a nested table.
type Config struct {
	StartFrom        int    `toml:"start_from"`
	ArtifactsFolder  string `toml:"artifacts_folder"`
	StitchFinalVideo bool   `toml:"stitch_final_video"`
	DatabasePath     string `toml:"database_path"`

	Logging Logging   `toml:"logging"`
	Ranking Ranking   `toml:"ranking"`
	Metrics Metrics   `toml:"metrics"`
	Stage1  StageOne  `toml:"stage_1"`
	Stage4  StageFour `toml:"stage_4"`
	Stage5  StageFive `toml:"stage_5"`
	Stage6  StageSix  `toml:"stage_6"`
}

// Load locates, parses, and validates a configuration file. An explicit path
// must exist. Without one, musicosa.toml is looked up in the working directory
// and then its parent. Unknown keys are rejected.
func Load(path string) (*Config, string, error) {
	cfg := Default()

	resolvedPath, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", err
	}

	file, err := os.Open(resolvedPath)
	if err != nil {
		return nil, "", fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, "", fmt.Errorf("parse config %s: %s", resolvedPath, strict.String())
		}
		return nil, "", fmt.Errorf("parse config %s: %w", resolvedPath, err)
	}

	if err := cfg.normalize(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, resolvedPath, nil
}

// Loader returns a function that re-reads the configuration from path. The
// pipeline hands it to gates offering the reload-config controls.
func Loader(path string) func() (*Config, error) {
	return func() (*Config, error) {
		cfg, _, err := Load(path)
		return cfg, err
	}
}

func resolveConfigPath(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path, "")
		if err != nil {
			return "", err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", ErrNotFound, expanded)
			}
			return "", fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, nil
	}

	candidates := []string{FileName, filepath.Join("..", FileName)}
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			return "", err
		}
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			return abs, nil
		}
	}
	return "", fmt.Errorf("%w: looked for %s in the working directory and its parent", ErrNotFound, FileName)
}

// EnsureDirectories creates the output folders stages write into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.ArtifactsFolder, c.Stage6.VideoBitsFolder, c.Logging.Dir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// DownloaderBinary returns the video downloader executable.
func (c *Config) DownloaderBinary() string {
	if bin := strings.TrimSpace(c.Stage5.DownloaderBinary); bin != "" {
		return bin
	}
	return defaultDownloaderBinary
}

// ScreenshotBinary returns the headless browser used for template screenshots.
func (c *Config) ScreenshotBinary() string {
	if bin := strings.TrimSpace(c.Stage4.ScreenshotBinary); bin != "" {
		return bin
	}
	return defaultScreenshotBinary
}

// LockPath returns the run lock file guarding the store.
func (c *Config) LockPath() string {
	return c.DatabasePath + ".lock"
}

func expandPath(pathValue, base string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	if base != "" && !filepath.IsAbs(pathValue) {
		pathValue = filepath.Join(base, pathValue)
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue, "")
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
