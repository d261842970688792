package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SettingType is the declared type of a setting value.
type SettingType string

const (
	SettingInteger SettingType = "integer"
	SettingReal    SettingType = "real"
	SettingString  SettingType = "string"
	SettingBoolean SettingType = "boolean"
)

// Setting keys consumed by the stages.
const (
	KeyScoreMinValue               = "validation.score_min_value"
	KeyScoreMaxValue               = "validation.score_max_value"
	KeyEntryVideoDuration          = "validation.entry_video_duration_seconds"
	KeySignificantDecimalDigits    = "ranking.significant_decimal_digits"
	KeyFrameWidth                  = "frame.width_px"
	KeyFrameHeight                 = "frame.height_px"
	KeyVideoclipsOverrideTopN      = "generation.videoclips_override_top_n_duration"
	KeyVideoclipsOverrideUpToXSecs = "generation.videoclips_override_duration_up_to_x_seconds"
)

var (
	// ErrSettingNotSet reports a required setting without a value.
	ErrSettingNotSet = errors.New("setting not set")
	// ErrUnknownSetting reports a key that is not registered in the settings table.
	ErrUnknownSetting = errors.New("unknown setting")
	// ErrSettingType reports a value that does not match the declared type.
	ErrSettingType = errors.New("setting type mismatch")
)

// Setting is one typed key/value row. Value is nil when the setting is unset.
type Setting struct {
	Group string
	Name  string
	Type  SettingType
	Value *string
}

// Key returns the dotted "group.name" key.
func (s Setting) Key() string {
	return s.Group + "." + s.Name
}

// SplitKey splits a dotted key into group and name.
func SplitKey(key string) (string, string, error) {
	group, name, ok := strings.Cut(strings.TrimSpace(key), ".")
	if !ok || group == "" || name == "" {
		return "", "", fmt.Errorf("setting key %q must look like group.name", key)
	}
	return group, name, nil
}

// Settings indexes settings by dotted key.
type Settings map[string]Setting

// IsSet reports whether key exists and has a value.
func (s Settings) IsSet(key string) bool {
	setting, ok := s[key]
	return ok && setting.Value != nil
}

func (s Settings) raw(key string, want SettingType) (string, error) {
	setting, ok := s[key]
	if !ok || setting.Value == nil {
		return "", fmt.Errorf("%w: '%s'", ErrSettingNotSet, key)
	}
	if setting.Type != want {
		return "", fmt.Errorf("%w: '%s' is %s, read as %s", ErrSettingType, key, setting.Type, want)
	}
	return *setting.Value, nil
}

// Int resolves an integer setting.
func (s Settings) Int(key string) (int, error) {
	raw, err := s.raw(key, SettingInteger)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: '%s' holds %q", ErrSettingType, key, raw)
	}
	return v, nil
}

// Float resolves a real setting. Integer settings are widened.
func (s Settings) Float(key string) (float64, error) {
	setting, ok := s[key]
	if ok && setting.Type == SettingInteger {
		v, err := s.Int(key)
		return float64(v), err
	}
	raw, err := s.raw(key, SettingReal)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: '%s' holds %q", ErrSettingType, key, raw)
	}
	return v, nil
}

// Bool resolves a boolean setting.
func (s Settings) Bool(key string) (bool, error) {
	raw, err := s.raw(key, SettingBoolean)
	if err != nil {
		return false, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: '%s' holds %q", ErrSettingType, key, raw)
	}
	return v, nil
}

// String resolves a string setting.
func (s Settings) String(key string) (string, error) {
	return s.raw(key, SettingString)
}

// Sorted returns the settings ordered by key.
func (s Settings) Sorted() []Setting {
	out := make([]Setting, 0, len(s))
	for _, setting := range s {
		out = append(out, setting)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// With returns a copy of the settings where key holds value. The value is
// normalised against the declared type.
func (s Settings) With(key, value string) (Settings, Setting, error) {
	if _, _, err := SplitKey(key); err != nil {
		return nil, Setting{}, err
	}
	setting, ok := s[key]
	if !ok {
		return nil, Setting{}, fmt.Errorf("%w: '%s'", ErrUnknownSetting, key)
	}
	normalized, err := NormalizeSettingValue(setting.Type, value)
	if err != nil {
		return nil, Setting{}, fmt.Errorf("setting '%s': %w", key, err)
	}
	setting.Value = &normalized
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	out[key] = setting
	return out, setting, nil
}

// NormalizeSettingValue checks value against t and returns its canonical text.
func NormalizeSettingValue(t SettingType, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch t {
	case SettingInteger:
		v, err := strconv.Atoi(value)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not an integer", ErrSettingType, value)
		}
		return strconv.Itoa(v), nil
	case SettingReal:
		v, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a number", ErrSettingType, value)
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case SettingBoolean:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a boolean", ErrSettingType, value)
		}
		return strconv.FormatBool(v), nil
	case SettingString:
		return value, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrSettingType, t)
	}
}

// LoadSettings reads every settings row.
func (s *Store) LoadSettings(ctx context.Context) (Settings, error) {
	return loadSettings(ensureContext(ctx), s.db)
}

// SetSetting validates and stores a single setting value.
func (s *Store) SetSetting(ctx context.Context, key, value string) (Setting, error) {
	ctx = ensureContext(ctx)
	current, err := s.LoadSettings(ctx)
	if err != nil {
		return Setting{}, err
	}
	_, setting, err := current.With(key, value)
	if err != nil {
		return Setting{}, err
	}
	if err := s.Commit(ctx, &Batch{Settings: []Setting{setting}}); err != nil {
		return Setting{}, err
	}
	return setting, nil
}
