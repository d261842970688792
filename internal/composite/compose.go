package composite

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"musicosa/internal/artifacts"
	"musicosa/internal/fileutil"
	"musicosa/internal/logging"
	"musicosa/internal/media/ffprobe"
	"musicosa/internal/services/ffmpeg"
	"musicosa/internal/staging"
	"musicosa/internal/store"
)

// staleWorkspaceAge is how old a leftover assembly workspace must be before
// a new run sweeps it.
const staleWorkspaceAge = 24 * time.Hour

// Encoder is the ffmpeg surface the compositor drives.
type Encoder interface {
	Run(ctx context.Context, args []string, quiet bool) error
	NormalizeLoudness(ctx context.Context, path string, quiet bool) error
	Concat(ctx context.Context, listFile, dst string, quiet bool) error
}

var _ Encoder = (*ffmpeg.Client)(nil)

// Item is one ranked entry with whatever geometry and window it has.
type Item struct {
	Entry    store.Entry
	Sequence int
	Template *store.Template
	Window   *store.VideoOptions
}

// Options controls one composition pass.
type Options struct {
	Layout     artifacts.Layout
	Overwrite  bool
	Quiet      bool
	Stitch     bool
	QuietFinal bool
	FinalName  string
	Transition Transition
}

// Missing records an entry whose sources are not available.
type Missing struct {
	EntryID string
	Title   string
	What    string
}

// Failure records an entry or award whose output could not be produced.
type Failure struct {
	Subject string
	Reason  string
}

// Result is the outcome of a composition pass.
type Result struct {
	Generated     []string
	Skipped       []string
	Missing       []Missing
	Failed        []Failure
	Warnings      []string
	FinalVideos   []string
	SkippedAwards []Failure
}

// Composer renders video bits and final videos.
type Composer struct {
	encoder Encoder
	prober  ffprobe.Prober
	logger  *slog.Logger
	runID   string
}

// New builds a compositor. runID names the scratch workspaces of this run.
func New(encoder Encoder, prober ffprobe.Prober, logger *slog.Logger, runID string) *Composer {
	return &Composer{
		encoder: encoder,
		prober:  prober,
		logger:  logging.NewComponentLogger(logger, "composite"),
		runID:   runID,
	}
}

// Compose generates every video bit, then the final videos when stitching.
// Per entry problems are recorded in the result and never stop the pass.
func (c *Composer) Compose(ctx context.Context, limits Limits, opts Options, items []Item) (Result, error) {
	var res Result
	if c.encoder == nil || c.prober == nil {
		return res, errors.New("composite: encoder and prober required")
	}
	for idx, item := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		c.videoBit(ctx, &res, limits, opts, idx+1, item)
	}
	if !opts.Stitch {
		return res, nil
	}
	if strings.TrimSpace(opts.FinalName) == "" {
		return res, errors.New("composite: final video name required")
	}
	for _, award := range groupByAward(items) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		c.finalVideo(ctx, &res, opts, award)
	}
	return res, nil
}

func (c *Composer) videoBit(ctx context.Context, res *Result, limits Limits, opts Options, index int, item Item) {
	e := item.Entry
	attrs := []logging.Attr{
		logging.Int("index", index),
		logging.String(logging.FieldAward, e.Award),
		logging.String(logging.FieldEntryID, e.ID),
		logging.Int("sequence", item.Sequence),
	}
	dest := opts.Layout.VideoBit(e.Award, item.Sequence)
	if !opts.Overwrite && fileutil.Exists(dest) {
		res.Skipped = append(res.Skipped, e.Title)
		c.logger.Info("video bit exists, skipping", logging.Args(attrs...)...)
		return
	}

	missing := func(what string) {
		res.Missing = append(res.Missing, Missing{EntryID: e.ID, Title: e.Title, What: what})
		logging.WarnWithContext(c.logger, "video bit source missing", "video_bit_source_missing",
			append(attrs, logging.String("missing", what))...)
	}
	image := opts.Layout.EntryImage(e)
	clip := opts.Layout.Clip(e)
	ok := true
	if item.Template == nil {
		missing("template geometry")
		ok = false
	}
	if item.Window == nil {
		missing("video options")
		ok = false
	}
	if !fileutil.Exists(image) {
		missing(image)
		ok = false
	}
	if !fileutil.Exists(clip) {
		missing(clip)
		ok = false
	}
	if !ok {
		return
	}

	fail := func(err error) {
		_ = os.Remove(dest)
		res.Failed = append(res.Failed, Failure{Subject: e.Title, Reason: err.Error()})
		logging.WarnWithContext(c.logger, "video bit failed", "video_bit_failed", append(attrs, logging.Error(err))...)
	}

	probe, err := c.prober.Inspect(ctx, clip)
	if err != nil {
		fail(err)
		return
	}
	clipSeconds := probe.DurationSeconds()
	if !(clipSeconds > 0) {
		fail(fmt.Errorf("%s reports no usable duration", clip))
		return
	}
	warn := func(msg string) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s", e.Title, msg))
		logging.WarnWithContext(c.logger, msg, "video_bit_warning", attrs...)
	}
	if !probe.HasAudio() {
		warn("clip has no audio track, the final video will be silent for this entry")
	}
	trim := PlanTrim(item.Sequence, clipSeconds, *item.Window, limits)
	if trim.Warning != "" {
		warn(trim.Warning)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		fail(fmt.Errorf("create video bits folder: %w", err))
		return
	}

	args := append([]string{}, trim.Args...)
	args = append(args,
		"-i", clip,
		"-loop", "1", "-i", image,
		"-filter_complex", VideoBitGraph(*item.Template),
		"-map", "[v]", "-map", "0:a?",
		"-r", fmt.Sprint(FPS),
		"-c:v", VideoCodec, "-b:v", VideoBitrate,
		"-c:a", ffmpeg.AudioCodec,
		dest,
	)
	c.logger.Info("generating video bit", logging.Args(attrs...)...)
	if err := c.encoder.Run(ctx, args, opts.Quiet); err != nil {
		fail(err)
		return
	}
	if err := c.encoder.NormalizeLoudness(ctx, dest, opts.Quiet); err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: loudness normalisation failed: %v", e.Title, err))
		logging.WarnWithContext(c.logger, "loudness normalisation failed", "video_bit_normalize_failed",
			append(attrs, logging.Error(err), logging.String(logging.FieldImpact, "video bit keeps its original loudness"))...)
	}
	res.Generated = append(res.Generated, dest)
}

type awardItems struct {
	slug  string
	items []Item
}

func groupByAward(items []Item) []awardItems {
	var out []awardItems
	index := make(map[string]int)
	for _, item := range items {
		i, ok := index[item.Entry.Award]
		if !ok {
			i = len(out)
			index[item.Entry.Award] = i
			out = append(out, awardItems{slug: item.Entry.Award})
		}
		out[i].items = append(out[i].items, item)
	}
	return out
}

func (c *Composer) finalVideo(ctx context.Context, res *Result, opts Options, award awardItems) {
	logger := c.logger.With(logging.String(logging.FieldAward, award.slug))
	skip := func(reason string) {
		res.SkippedAwards = append(res.SkippedAwards, Failure{Subject: award.slug, Reason: reason})
		logging.WarnWithContext(logger, "skipping final video", "final_video_skipped",
			logging.String("reason", reason), logging.String(logging.FieldImpact, "award has no final video"))
	}

	missingBits := 0
	for _, item := range award.items {
		if !fileutil.Exists(opts.Layout.VideoBit(award.slug, item.Sequence)) {
			missingBits++
		}
	}
	if missingBits > 0 {
		skip(fmt.Sprintf("there are %d missing video bits", missingBits))
		return
	}
	for _, item := range award.items {
		if p := opts.Layout.PresentationImage(item.Entry); !fileutil.Exists(p) {
			skip(fmt.Sprintf("presentation image %s missing", p))
			return
		}
	}

	ordered := slices.Clone(award.items)
	slices.SortStableFunc(ordered, func(a, b Item) int { return cmp.Compare(b.Sequence, a.Sequence) })

	bitsDir := opts.Layout.VideoBitsDir(award.slug)
	staging.CleanStale(ctx, bitsDir, staleWorkspaceAge, logger)
	ws, err := staging.New(bitsDir, c.runID)
	if err != nil {
		res.Failed = append(res.Failed, Failure{Subject: award.slug, Reason: err.Error()})
		return
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			logging.WarnWithContext(logger, "failed to remove workspace", "workspace_cleanup_failed",
				logging.String("path", ws.Dir), logging.Error(err))
		}
	}()

	logger.Info("generating final video", logging.Int("entries", len(ordered)))
	var fragments []string
	for start := 0; start < len(ordered); start += EntriesPerFragment {
		chunk := ordered[start:min(start+EntriesPerFragment, len(ordered))]
		fragment, err := c.fragment(ctx, opts, ws, len(fragments), chunk)
		if err != nil {
			res.Failed = append(res.Failed, Failure{Subject: award.slug, Reason: err.Error()})
			logging.WarnWithContext(logger, "final video fragment failed", "final_video_failed", logging.Error(err))
			return
		}
		fragments = append(fragments, fragment)
	}

	final := opts.Layout.FinalVideo(award.slug, opts.FinalName)
	if err := c.join(ctx, opts, ws, fragments, final); err != nil {
		res.Failed = append(res.Failed, Failure{Subject: award.slug, Reason: err.Error()})
		logging.WarnWithContext(logger, "final video join failed", "final_video_failed", logging.Error(err))
		return
	}
	res.FinalVideos = append(res.FinalVideos, final)
	logger.Info("final video generated", logging.String("path", final), logging.Int("fragments", len(fragments)))
}

func (c *Composer) fragment(ctx context.Context, opts Options, ws *staging.Workspace, id int, chunk []Item) (string, error) {
	var args []string
	durations := make([]float64, 0, len(chunk))
	for _, item := range chunk {
		bit := opts.Layout.VideoBit(item.Entry.Award, item.Sequence)
		d, err := ffprobe.Duration(ctx, c.prober, bit)
		if err != nil {
			return "", err
		}
		durations = append(durations, d)
		args = append(args,
			"-loop", "1", "-t", num(opts.Transition.Presentation), "-i", opts.Layout.PresentationImage(item.Entry),
			"-i", bit,
		)
	}

	script := ws.Path(fmt.Sprintf("filtergraph.fragment-%d.txt", id))
	if err := os.WriteFile(script, []byte(FragmentGraph(durations, opts.Transition)), 0o644); err != nil {
		return "", fmt.Errorf("write filter graph: %w", err)
	}
	out := ws.Path(fmt.Sprintf("fragment-%d%s", id, artifacts.VideoExt))
	args = append(args,
		"-filter_complex_script", script,
		"-map", "[vout]", "-map", "[aout]",
		"-c:v", VideoCodec, "-b:v", VideoBitrate,
		out,
	)
	if err := c.encoder.Run(ctx, args, opts.QuietFinal); err != nil {
		return "", fmt.Errorf("fragment %d: %w", id, err)
	}
	return out, nil
}

func (c *Composer) join(ctx context.Context, opts Options, ws *staging.Workspace, fragments []string, final string) error {
	if len(fragments) == 1 {
		return fileutil.ReplaceFile(fragments[0], final)
	}
	var list strings.Builder
	for _, f := range fragments {
		fmt.Fprintf(&list, "file '%s'\n", filepath.Base(f))
	}
	listFile := ws.Path("concat.list")
	if err := os.WriteFile(listFile, []byte(list.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return c.encoder.Concat(ctx, listFile, final, opts.QuietFinal)
}
