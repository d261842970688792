package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// FirstStage and LastStage bound start_from.
const (
	FirstStage = 1
	LastStage  = 6
)

// TransitionTypes lists the ffmpeg xfade transitions accepted for the final video.
var TransitionTypes = []string{
	"custom", "fade", "wipeleft", "wiperight", "wipeup", "wipedown", "slideleft", "slideright",
	"slideup", "slidedown", "circlecrop", "rectcrop", "distance", "fadeblack", "fadewhite", "radial",
	"smoothleft", "smoothright", "smoothup", "smoothdown", "circleopen", "circleclose", "vertopen",
	"vertclose", "horzopen", "horzclose", "dissolve", "pixelize", "diagtl", "diagtr", "diagbl",
	"diagbr", "hlslice", "hrslice", "vuslice", "vdslice", "hblur", "fadegrays", "wipetl", "wipetr",
	"wipebl", "wipebr", "squeezeh", "squeezev", "zoomin", "fadefast", "fadeslow",
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.StartFrom < FirstStage || c.StartFrom > LastStage {
		return fmt.Errorf("start_from must be between %d and %d, got %d", FirstStage, LastStage, c.StartFrom)
	}
	if strings.TrimSpace(c.ArtifactsFolder) == "" {
		return errors.New("artifacts_folder must be set")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return errors.New("database_path must be set")
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateRanking(); err != nil {
		return err
	}
	if err := c.validateStageOne(); err != nil {
		return err
	}
	if err := c.validateStageFour(); err != nil {
		return err
	}
	if err := c.validateStageSix(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateRanking() error {
	switch c.Ranking.TieBreak {
	case TieBreakRandom, TieBreakAuthorAvgGiven:
	default:
		return fmt.Errorf("ranking.tie_break must be %q or %q, got %q", TieBreakRandom, TieBreakAuthorAvgGiven, c.Ranking.TieBreak)
	}
	switch c.Ranking.SequenceScope {
	case SequenceScopeAward, SequenceScopeGlobal:
	default:
		return fmt.Errorf("ranking.sequence_scope must be %q or %q, got %q", SequenceScopeAward, SequenceScopeGlobal, c.Ranking.SequenceScope)
	}
	return nil
}

func (c *Config) validateStageOne() error {
	if c.Stage1.FormsFolder == "" {
		return errors.New("stage_1.forms_folder must be set")
	}
	if c.Stage1.EntriesFile == "" {
		return errors.New("stage_1.entries_file must be set")
	}
	return nil
}

func (c *Config) validateStageFour() error {
	if err := validateHTTPURL("stage_4.templates_api_url", c.Stage4.TemplatesAPIURL); err != nil {
		return err
	}
	if c.StitchFinalVideo {
		if err := validateHTTPURL("stage_4.presentations_api_url", c.Stage4.PresentationsAPIURL); err != nil {
			return err
		}
	}
	if c.Stage4.GenRetryAttempts < 1 || c.Stage4.GenRetryAttempts > 10 {
		return fmt.Errorf("stage_4.gen_retry_attempts must be between 1 and 10, got %d", c.Stage4.GenRetryAttempts)
	}
	return nil
}

func (c *Config) validateStageSix() error {
	if c.Stage6.VideoBitsFolder == "" {
		return errors.New("stage_6.video_bits_folder must be set")
	}
	if !c.StitchFinalVideo {
		return nil
	}
	if c.Stage6.PresentationDuration <= 0 {
		return errors.New("stage_6.presentation_duration must be positive")
	}
	if c.Stage6.TransitionDuration < 0 {
		return errors.New("stage_6.transition_duration must not be negative")
	}
	if c.Stage6.TransitionDuration >= c.Stage6.PresentationDuration {
		return errors.New("stage_6.transition_duration must be shorter than stage_6.presentation_duration")
	}
	if !slices.Contains(TransitionTypes, c.Stage6.TransitionType) {
		return fmt.Errorf("stage_6.transition_type %q is not an xfade transition", c.Stage6.TransitionType)
	}
	if strings.TrimSpace(c.Stage6.FinalVideoName) == "" {
		return errors.New("stage_6.final_video_name must be set")
	}
	return nil
}

func validateHTTPURL(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s must be set", key)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}
