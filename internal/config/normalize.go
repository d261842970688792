package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize(base string) error {
	if err := c.normalizePaths(base); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeRanking()
	c.normalizeStageFour()
	c.normalizeStageFive()
	c.normalizeStageSix()
	return nil
}

func (c *Config) normalizePaths(base string) error {
	if strings.TrimSpace(c.DatabasePath) == "" || c.DatabasePath == defaultDatabasePath {
		if value, ok := os.LookupEnv(defaultDatabasePathEnvironment); ok && strings.TrimSpace(value) != "" {
			c.DatabasePath = strings.TrimSpace(value)
		}
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		c.DatabasePath = defaultDatabasePath
	}

	var err error
	if c.ArtifactsFolder, err = expandPath(strings.TrimSpace(c.ArtifactsFolder), base); err != nil {
		return fmt.Errorf("artifacts_folder: %w", err)
	}
	if c.DatabasePath, err = expandPath(strings.TrimSpace(c.DatabasePath), base); err != nil {
		return fmt.Errorf("database_path: %w", err)
	}
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir), base); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile), base); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	if c.Stage1.FormsFolder, err = expandPath(strings.TrimSpace(c.Stage1.FormsFolder), base); err != nil {
		return fmt.Errorf("stage_1.forms_folder: %w", err)
	}
	if c.Stage1.EntriesFile, err = expandPath(strings.TrimSpace(c.Stage1.EntriesFile), base); err != nil {
		return fmt.Errorf("stage_1.entries_file: %w", err)
	}
	if c.Stage6.VideoBitsFolder, err = expandPath(strings.TrimSpace(c.Stage6.VideoBitsFolder), base); err != nil {
		return fmt.Errorf("stage_6.video_bits_folder: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text", "pretty":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

func (c *Config) normalizeRanking() {
	c.Ranking.TieBreak = strings.ToLower(strings.TrimSpace(c.Ranking.TieBreak))
	if c.Ranking.TieBreak == "" {
		c.Ranking.TieBreak = defaultTieBreak
	}
	c.Ranking.SequenceScope = strings.ToLower(strings.TrimSpace(c.Ranking.SequenceScope))
	if c.Ranking.SequenceScope == "" {
		c.Ranking.SequenceScope = defaultSequenceScope
	}
}

func (c *Config) normalizeStageFour() {
	c.Stage4.TemplatesAPIURL = strings.TrimRight(strings.TrimSpace(c.Stage4.TemplatesAPIURL), "/")
	c.Stage4.PresentationsAPIURL = strings.TrimRight(strings.TrimSpace(c.Stage4.PresentationsAPIURL), "/")
	c.Stage4.ScreenshotBinary = strings.TrimSpace(c.Stage4.ScreenshotBinary)
}

func (c *Config) normalizeStageFive() {
	c.Stage5.CookiesBrowser = strings.ToLower(strings.TrimSpace(c.Stage5.CookiesBrowser))
	if c.Stage5.CookiesBrowser == "" {
		c.Stage5.CookiesBrowser = defaultCookiesBrowser
	}
	c.Stage5.DownloaderBinary = strings.TrimSpace(c.Stage5.DownloaderBinary)
}

func (c *Config) normalizeStageSix() {
	c.Stage6.FinalVideoName = strings.TrimSuffix(strings.TrimSpace(c.Stage6.FinalVideoName), ".mp4")
	if c.Stage6.FinalVideoName == "" {
		c.Stage6.FinalVideoName = defaultFinalVideoName
	}
	c.Stage6.TransitionType = strings.TrimSpace(c.Stage6.TransitionType)
	if c.Stage6.TransitionType == "" {
		c.Stage6.TransitionType = defaultTransitionType
	}
}
