package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"musicosa/internal/artifacts"
	"musicosa/internal/logging"
	"musicosa/internal/services/screenshot"
	"musicosa/internal/store"
)

// Kind distinguishes the two images rendered per entry.
type Kind string

const (
	KindEntry        Kind = "entry"
	KindPresentation Kind = "presentation"
)

// Options controls one render pass.
type Options struct {
	TemplatesURL           string
	PresentationsURL       string
	Presentations          bool
	RetryAttempts          int
	RetryDelay             time.Duration
	OverwriteTemplates     bool
	OverwritePresentations bool
	Width                  int
	Height                 int
	Layout                 artifacts.Layout
}

// Failure records an entry whose image could not be produced.
type Failure struct {
	EntryID string
	Title   string
	Reason  string
}

// Tally groups outcomes for one image kind.
type Tally struct {
	Generated []string
	Skipped   []string
	Failed    []Failure
}

// Result is the outcome of a render pass.
type Result struct {
	Entries       Tally
	Presentations Tally
}

// Failed reports the number of failed images of both kinds.
func (r Result) Failed() int {
	return len(r.Entries.Failed) + len(r.Presentations.Failed)
}

// Frame reads the frame size settings. Both must be set.
func Frame(settings store.Settings) (int, int, error) {
	width, err := settings.Int(store.KeyFrameWidth)
	if err != nil {
		return 0, 0, err
	}
	height, err := settings.Int(store.KeyFrameHeight)
	if err != nil {
		return 0, 0, err
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("frame size %dx%d must be positive", width, height)
	}
	return width, height, nil
}

// Renderer captures template pages.
type Renderer struct {
	capturer screenshot.Capturer
	logger   *slog.Logger
}

// New builds a renderer around a screenshot client.
func New(capturer screenshot.Capturer, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{capturer: capturer, logger: logging.NewComponentLogger(logger, "render")}
}

// Render produces images for entries. Only a cancelled context or bad
// options end the pass early.
func (r *Renderer) Render(ctx context.Context, opts Options, entries []store.Entry) (Result, error) {
	var res Result
	if r.capturer == nil {
		return res, errors.New("render: no screenshot client")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return res, fmt.Errorf("render: frame size %dx%d must be positive", opts.Width, opts.Height)
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	base := strings.TrimRight(opts.TemplatesURL, "/")
	presBase := strings.TrimRight(opts.PresentationsURL, "/")

	for idx, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		job := job{index: idx + 1, entry: e}

		job.kind, job.dest, job.overwrite = KindEntry, opts.Layout.EntryImage(e), opts.OverwriteTemplates
		job.url = fmt.Sprintf("%s/%s?disableVideoPlaceholder=true", base, e.ID)
		r.record(&res.Entries, job, r.generate(ctx, opts, job))

		if opts.Presentations {
			job.kind, job.dest, job.overwrite = KindPresentation, opts.Layout.PresentationImage(e), opts.OverwritePresentations
			job.url = fmt.Sprintf("%s/%s", presBase, e.ID)
			r.record(&res.Presentations, job, r.generate(ctx, opts, job))
		}
	}
	return res, ctx.Err()
}

type job struct {
	index     int
	entry     store.Entry
	kind      Kind
	url       string
	dest      string
	overwrite bool
}

type outcome struct {
	skipped bool
	err     error
}

var (
	errNotFound = errors.New("template page not found")
	errNoStatus = errors.New("template page unavailable")
)

func (r *Renderer) generate(ctx context.Context, opts Options, j job) outcome {
	if !j.overwrite {
		if info, err := os.Stat(j.dest); err == nil && !info.IsDir() {
			return outcome{skipped: true}
		}
	}

	var last error
	for attempt := 0; attempt <= opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			r.logger.Info("retrying template page",
				logging.Int("attempt", attempt),
				logging.Int("max_attempts", opts.RetryAttempts),
				logging.String("kind", string(j.kind)),
				logging.String(logging.FieldEntryID, j.entry.ID),
			)
			if opts.RetryDelay > 0 {
				select {
				case <-ctx.Done():
					return outcome{err: ctx.Err()}
				case <-time.After(opts.RetryDelay):
				}
			}
		}
		probe, status := r.capturer.Probe(ctx, j.url)
		switch probe {
		case screenshot.Ready:
			if err := r.capturer.Capture(ctx, j.url, j.dest, opts.Width, opts.Height); err != nil {
				return outcome{err: err}
			}
			return outcome{}
		case screenshot.Missing:
			return outcome{err: fmt.Errorf("%w: %s", errNotFound, j.url)}
		default:
			last = fmt.Errorf("%w: %s (HTTP status code: %d)", errNoStatus, j.url, status)
		}
		if ctx.Err() != nil {
			return outcome{err: ctx.Err()}
		}
	}
	return outcome{err: last}
}

func (r *Renderer) record(t *Tally, j job, o outcome) {
	attrs := []logging.Attr{
		logging.Int("index", j.index),
		logging.String("kind", string(j.kind)),
		logging.String(logging.FieldAward, j.entry.Award),
		logging.String(logging.FieldEntryID, j.entry.ID),
		logging.String("title", j.entry.Title),
	}
	switch {
	case o.skipped:
		t.Skipped = append(t.Skipped, j.entry.Title)
		r.logger.Info("template image exists, skipping", logging.Args(append(attrs, logging.String("path", j.dest))...)...)
	case o.err != nil:
		t.Failed = append(t.Failed, Failure{EntryID: j.entry.ID, Title: j.entry.Title, Reason: o.err.Error()})
		logging.WarnWithContext(r.logger, "template image failed", "render_failed",
			append(attrs, logging.Error(o.err))...)
	default:
		t.Generated = append(t.Generated, j.entry.Title)
		r.logger.Info("template image generated", logging.Args(append(attrs, logging.String("path", j.dest))...)...)
	}
}
