package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"musicosa/internal/fileutil"
	"musicosa/internal/services"
)

// EBU R128 targets used for every video bit.
const (
	LoudnessTarget   = -23.0
	LoudnessRange    = 7.0
	AudioCodec       = "aac"
	AudioSampleRate  = 48000
	normalizedSuffix = ".normalized"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec services.Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg invocations.
type Client struct {
	binary string
	exec   services.Executor
}

// New constructs an ffmpeg client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	c := &Client{binary: binary, exec: services.CommandExecutor{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run executes ffmpeg with args, always overwriting outputs. Quiet runs only
// report errors.
func (c *Client) Run(ctx context.Context, args []string, quiet bool) error {
	full := []string{"-y"}
	if quiet {
		full = append(full, "-hide_banner", "-loglevel", "error")
	}
	full = append(full, args...)
	if err := c.exec.Run(ctx, c.binary, full, nil); err != nil {
		return services.Wrap(services.ErrExternalTool, "", "ffmpeg", "", err)
	}
	return nil
}

// Remux copies every stream of src into an MP4 at dst.
func (c *Client) Remux(ctx context.Context, src, dst string, quiet bool) error {
	if src == dst {
		return fmt.Errorf("remux: source and destination are the same file %s", src)
	}
	return c.Run(ctx, []string{"-i", src, "-c", "copy", dst}, quiet)
}

// NormalizeLoudness rewrites path in place with loudness normalised audio.
// The video stream is copied untouched.
func (c *Client) NormalizeLoudness(ctx context.Context, path string, quiet bool) error {
	ext := filepath.Ext(path)
	tmp := strings.TrimSuffix(path, ext) + normalizedSuffix + ext
	filter := fmt.Sprintf("loudnorm=I=%g:LRA=%g:TP=-2", LoudnessTarget, LoudnessRange)
	args := []string{
		"-i", path,
		"-c:v", "copy",
		"-af", filter,
		"-c:a", AudioCodec,
		"-ar", fmt.Sprint(AudioSampleRate),
		tmp,
	}
	if err := c.Run(ctx, args, quiet); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := fileutil.ReplaceFile(tmp, path); err != nil {
		return fmt.Errorf("replace %s with normalized output: %w", path, err)
	}
	return nil
}

// Concat joins files listed in a concat demuxer list without re-encoding video.
func (c *Client) Concat(ctx context.Context, listFile, dst string, quiet bool) error {
	return c.Run(ctx, []string{"-f", "concat", "-safe", "0", "-i", listFile, "-c:v", "copy", "-c:a", "copy", dst}, quiet)
}
