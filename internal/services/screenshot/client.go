package screenshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"musicosa/internal/services"
)

// ProbeOutcome classifies a template page response.
type ProbeOutcome int

const (
	// Ready means the page answered 200 and can be captured.
	Ready ProbeOutcome = iota
	// Missing means the page answered 404; retrying will not help.
	Missing
	// Unavailable covers every other status and transport failure.
	Unavailable
)

func (o ProbeOutcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case Missing:
		return "missing"
	default:
		return "unavailable"
	}
}

// Capturer is what the render stage needs from a screenshot tool.
type Capturer interface {
	Probe(ctx context.Context, url string) (ProbeOutcome, int)
	Capture(ctx context.Context, url, dest string, width, height int) error
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

// WithHTTPClient replaces the HTTP client used for probing.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// Client drives a Chromium compatible browser in headless mode.
type Client struct {
	binary string
	exec   services.Executor
	http   *http.Client
}

// New constructs a screenshot client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("screenshot binary required")
	}
	c := &Client{
		binary: binary,
		exec:   services.CommandExecutor{},
		http:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Probe loads url and classifies the response. The status code is 0 when the
// request never got an answer.
func (c *Client) Probe(ctx context.Context, url string) (ProbeOutcome, int) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Unavailable, 0
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Unavailable, 0
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return Ready, resp.StatusCode
	case http.StatusNotFound:
		return Missing, resp.StatusCode
	default:
		return Unavailable, resp.StatusCode
	}
}

// Capture writes a width x height screenshot of url to dest.
func (c *Client) Capture(ctx context.Context, url, dest string, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("screenshot: invalid viewport %dx%d", width, height)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("screenshot: create destination: %w", err)
	}
	args := []string{
		"--headless",
		"--hide-scrollbars",
		"--window-size=" + strconv.Itoa(width) + "," + strconv.Itoa(height),
		"--screenshot=" + dest,
		url,
	}
	if err := c.exec.Run(ctx, c.binary, args, nil); err != nil {
		return services.Wrap(services.ErrExternalTool, "", "screenshot", filepath.Base(dest), err)
	}
	info, err := os.Stat(dest)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "", "screenshot", "no output file "+dest, err)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "", "screenshot", "empty output file "+dest, nil)
	}
	return nil
}
