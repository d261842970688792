package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"musicosa/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Channels  int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Prober inspects media files.
type Prober interface {
	Inspect(ctx context.Context, path string) (Result, error)
}

// Client runs ffprobe through an executor.
type Client struct {
	binary string
	exec   services.Executor
}

// New constructs a client. A nil executor runs the real binary.
func New(binary string, exec services.Executor) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if exec == nil {
		exec = services.CommandExecutor{}
	}
	return &Client{binary: binary, exec: exec}
}

// Inspect executes ffprobe against path and decodes the JSON response.
func (c *Client) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	var out strings.Builder
	args := []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
	if err := c.exec.Run(ctx, c.binary, args, func(line string) {
		out.WriteString(line)
		out.WriteByte('\n')
	}); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "", "ffprobe", path, err)
	}

	var result Result
	if err := json.Unmarshal([]byte(out.String()), &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Duration inspects path and returns its duration in seconds.
func Duration(ctx context.Context, p Prober, path string) (float64, error) {
	result, err := p.Inspect(ctx, path)
	if err != nil {
		return 0, err
	}
	d := result.DurationSeconds()
	if math.IsNaN(d) || d <= 0 {
		return 0, fmt.Errorf("ffprobe: %s reports no usable duration", path)
	}
	return d, nil
}

// HasAudio reports whether any audio stream is present.
func (r Result) HasAudio() bool {
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			return true
		}
	}
	return false
}

// DurationSeconds returns the container duration in seconds, falling back to
// the longest stream. Zero means unavailable; NaN means unparsable.
func (r Result) DurationSeconds() float64 {
	if d := parseFloat(r.Format.Duration); d != 0 {
		return d
	}
	longest := 0.0
	for _, stream := range r.Streams {
		if d := parseFloat(stream.Duration); d > longest {
			longest = d
		}
	}
	return longest
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
