package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"musicosa/internal/services"
)

// FormatSort prefers sources up to 1080p with stereo audio.
const FormatSort = "res:1080,channels:2"

// Downloader is what the clip acquisition stage needs.
type Downloader interface {
	Download(ctx context.Context, url, destBase string) (string, error)
}

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

// WithCookiesFromBrowser makes yt-dlp reuse the named browser's cookies.
func WithCookiesFromBrowser(browser string) Option {
	return func(c *Client) {
		c.cookiesBrowser = strings.TrimSpace(browser)
	}
}

// WithFFmpegLocation points yt-dlp at a specific ffmpeg build.
func WithFFmpegLocation(path string) Option {
	return func(c *Client) {
		c.ffmpegLocation = strings.TrimSpace(path)
	}
}

// Client wraps yt-dlp invocations.
type Client struct {
	binary         string
	exec           services.Executor
	cookiesBrowser string
	ffmpegLocation string
}

// New constructs a downloader client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	c := &Client{binary: binary, exec: services.CommandExecutor{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Download fetches url into destBase plus whatever extension the source
// provides, returning the final file path reported by yt-dlp.
func (c *Client) Download(ctx context.Context, url, destBase string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", errors.New("yt-dlp: empty url")
	}
	if err := os.MkdirAll(filepath.Dir(destBase), 0o755); err != nil {
		return "", fmt.Errorf("yt-dlp: create destination: %w", err)
	}

	args := c.arguments(url, destBase)
	var printed string
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		if line = strings.TrimSpace(line); line != "" {
			printed = line
		}
	})
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "", "download", url, err)
	}
	if printed == "" {
		return "", services.Wrap(services.ErrExternalTool, "", "download", "yt-dlp did not report an output file for "+url, nil)
	}
	if _, err := os.Stat(printed); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "", "download", "output file missing", err)
	}
	return printed, nil
}

func (c *Client) arguments(url, destBase string) []string {
	args := []string{
		"-S", FormatSort,
		"--no-playlist",
		"--windows-filenames",
		"--force-overwrites",
		"--no-simulate",
		"--print", "after_move:filepath",
		"-o", destBase + ".%(ext)s",
	}
	if c.cookiesBrowser != "" {
		args = append(args, "--cookies-from-browser", c.cookiesBrowser)
	}
	if c.ffmpegLocation != "" {
		args = append(args, "--ffmpeg-location", c.ffmpegLocation)
	}
	return append(args, "--", url)
}
