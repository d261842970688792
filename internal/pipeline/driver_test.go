package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"musicosa/internal/artifacts"
	"musicosa/internal/config"
	"musicosa/internal/flowgate"
	"musicosa/internal/fulfillment"
	"musicosa/internal/media/ffprobe"
	"musicosa/internal/pipeline"
	"musicosa/internal/services"
	"musicosa/internal/services/screenshot"
	"musicosa/internal/store"
	"musicosa/internal/testsupport"
)

type fakeCapturer struct{ captured []string }

func (f *fakeCapturer) Probe(context.Context, string) (screenshot.ProbeOutcome, int) {
	return screenshot.Ready, 200
}

func (f *fakeCapturer) Capture(_ context.Context, url, dest string, _, _ int) error {
	f.captured = append(f.captured, url)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte("png"), 0o644)
}

type fakeDownloader struct{ calls []string }

func (f *fakeDownloader) Download(_ context.Context, url, destBase string) (string, error) {
	f.calls = append(f.calls, url)
	path := destBase + ".mp4"
	return path, os.WriteFile(path, []byte("video"), 0o644)
}

// fakeMedia stands in for ffmpeg and ffprobe.
type fakeMedia struct{ runs int }

func (f *fakeMedia) Remux(_ context.Context, _, dst string, _ bool) error {
	return os.WriteFile(dst, []byte("mp4"), 0o644)
}

func (f *fakeMedia) Run(_ context.Context, args []string, _ bool) error {
	f.runs++
	return os.WriteFile(args[len(args)-1], []byte("video"), 0o644)
}

func (f *fakeMedia) NormalizeLoudness(context.Context, string, bool) error { return nil }

func (f *fakeMedia) Concat(_ context.Context, _, dst string, _ bool) error {
	return os.WriteFile(dst, []byte("final"), 0o644)
}

func (f *fakeMedia) Inspect(context.Context, string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Format:  ffprobe.Format{Duration: "120"},
		Streams: []ffprobe.Stream{{CodecType: "video"}, {CodecType: "audio"}},
	}, nil
}

var baseSettings = map[string]string{
	store.KeyScoreMinValue:               "0",
	store.KeyScoreMaxValue:               "10",
	store.KeyEntryVideoDuration:          "30",
	store.KeySignificantDecimalDigits:    "2",
	store.KeyFrameWidth:                  "1920",
	store.KeyFrameHeight:                 "1080",
	store.KeyVideoclipsOverrideTopN:      "0",
	store.KeyVideoclipsOverrideUpToXSecs: "0",
}

const (
	formBody    = "Member,Song A,Song B [Band]\nAna,8,6\nBruno,9,7\n"
	catalogBody = "award,title,nominee,author,video_url,video_timestamp\n" +
		"best-song,Song A,,Ana,https://example.com/a,00:10 - 00:40\n" +
		"best-song,Song B,Band,Bruno,https://example.com/b,\n"
)

// fulfillmentAnswers pairs Ana with a new avatar, gives Bruno the same one,
// assigns one template to both entries, and sets the Song B clip window.
var fulfillmentAnswers = strings.Join([]string{
	"new", "ana.png", "200", "10", "20", "1.5", "",
	"1",
	"", "1", "640", "360", "0", "0",
	"01:00 - 01:30",
}, "\n") + "\n"

type harness struct {
	cfg      *config.Config
	store    *store.Store
	provider *flowgate.ScriptedProvider
	metrics  *pipeline.Metrics
	media    *fakeMedia
	out      bytes.Buffer
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Metrics.Textfile = filepath.Join(testsupport.BaseDir(cfg), "metrics", "musicosa.prom")
	h := &harness{
		cfg:      cfg,
		store:    testsupport.MustOpenStore(t, cfg),
		provider: flowgate.NewScriptedProvider(nil, flowgate.Continue, flowgate.Abort),
		metrics:  pipeline.NewMetrics(),
		media:    &fakeMedia{},
	}
	return h
}

func (h *harness) driver(t *testing.T, answers string) *pipeline.Driver {
	t.Helper()
	runner := flowgate.NewRunner(h.provider,
		flowgate.WithOutput(&h.out),
		flowgate.WithDecisionHook(h.metrics.DecisionHook()),
	)
	d, err := pipeline.New(h.cfg, h.store, pipeline.Options{
		LoadConfig: func() (*config.Config, error) { return h.cfg, nil },
		Tools: func(*config.Config) (pipeline.Tools, error) {
			return pipeline.Tools{
				Capturer:   &fakeCapturer{},
				Downloader: &fakeDownloader{},
				Remuxer:    h.media,
				Encoder:    h.media,
				Prober:     h.media,
			}, nil
		},
		Runner:              runner,
		Prompter:            fulfillment.NewPrompter(strings.NewReader(answers), &h.out),
		Out:                 &h.out,
		Metrics:             h.metrics,
		RunID:               "run-test",
		SkipDependencyCheck: true,
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	return d
}

func (h *harness) seedSubmissions(t *testing.T) {
	t.Helper()
	if err := h.store.AddAwards(context.Background(), store.Award{Slug: "best-song", Designation: "Best Song"}); err != nil {
		t.Fatalf("AddAwards: %v", err)
	}
	testsupport.SeedSettings(t, h.store, baseSettings)
	testsupport.WriteFile(t, filepath.Join(h.cfg.Stage1.FormsFolder, "best-song.csv"), formBody)
	testsupport.WriteFile(t, h.cfg.Stage1.EntriesFile, catalogBody)
}

func TestDriverRunsEveryStage(t *testing.T) {
	h := newHarness(t)
	h.seedSubmissions(t)
	d := h.driver(t, fulfillmentAnswers)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v\n%s", err, h.out.String())
	}
	if state := d.State(); len(state.EntryStats) != 2 || len(state.Templates) != 2 {
		t.Fatalf("unexpected run state: %d stats, %d templates", len(state.EntryStats), len(state.Templates))
	}
	output := h.out.String()
	if !strings.Contains(output, "Pipeline completed ✔") {
		t.Fatalf("expected completion banner, got:\n%s", output)
	}
	for _, header := range []string{"[STAGE 1 | Submission Validation]", "[STAGE 6 | Video Bits Generation]"} {
		if !strings.Contains(output, header) {
			t.Fatalf("expected %q in output", header)
		}
	}

	rankings, err := h.store.Rankings(context.Background(), "best-song")
	if err != nil {
		t.Fatalf("Rankings: %v", err)
	}
	if len(rankings) != 2 {
		t.Fatalf("expected 2 ranked entries, got %d", len(rankings))
	}
	for _, r := range rankings {
		if r.Entry.Title == "Song A" && (r.Stats.RankingPlace != 1 || r.Stats.AvgScore != 8.5) {
			t.Fatalf("unexpected Song A stats: %+v", r.Stats)
		}
	}

	snap, err := h.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Avatars) != 1 || snap.Avatars[0].ImageFilename != "ana.png" {
		t.Fatalf("unexpected avatars: %+v", snap.Avatars)
	}
	for _, m := range snap.Members {
		if m.AvatarID != 1 {
			t.Fatalf("expected member %s paired with avatar 1, got %d", m.Name, m.AvatarID)
		}
	}
	if len(snap.Templates) != 2 || len(snap.VideoOptions) != 2 {
		t.Fatalf("expected templates and video options for both entries, got %d/%d", len(snap.Templates), len(snap.VideoOptions))
	}

	layout := artifacts.Layout{Artifacts: h.cfg.ArtifactsFolder, VideoBits: h.cfg.Stage6.VideoBitsFolder}
	for _, seq := range []int{1, 2} {
		if _, err := os.Stat(layout.VideoBit("best-song", seq)); err != nil {
			t.Fatalf("expected video bit %d: %v", seq, err)
		}
	}

	metrics, err := os.ReadFile(h.cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	if !strings.Contains(string(metrics), `musicosa_stage_runs_total{outcome="completed",stage="6"} 1`) {
		t.Fatalf("expected stage 6 completion in metrics:\n%s", metrics)
	}
}

func TestDriverSkipsStagesBeforeStartFrom(t *testing.T) {
	h := newHarness(t, testsupport.WithStartFrom(pipeline.StageComposite))
	testsupport.SeedSettings(t, h.store, baseSettings)
	d := h.driver(t, "")

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v\n%s", err, h.out.String())
	}
	output := h.out.String()
	if strings.Contains(output, "[STAGE 1 |") || strings.Contains(output, "[STAGE 5 |") {
		t.Fatalf("expected earlier stages to be skipped, got:\n%s", output)
	}
	if !strings.Contains(output, "[STAGE 6 |") {
		t.Fatalf("expected stage 6 to run, got:\n%s", output)
	}
	if h.media.runs != 0 {
		t.Fatalf("expected no encoder runs without entries, got %d", h.media.runs)
	}
}

func TestRetriedStageTalliesAcceptedResultOnly(t *testing.T) {
	h := newHarness(t, testsupport.WithStartFrom(pipeline.StageVideoclips))
	script, err := flowgate.ParseScript([]byte("steps:\n  stage_5_execute: [r]\non_success: c\non_error: a\n"))
	if err != nil {
		t.Fatalf("ParseScript failed: %v", err)
	}
	h.provider = script
	testsupport.SeedSettings(t, h.store, baseSettings)
	testsupport.MustCommit(t, h.store, &store.Batch{
		Awards:  []store.Award{{Slug: "best-song", Designation: "Best Song"}},
		Entries: []store.Entry{
			{ID: "e1", Title: "Song A", Award: "best-song", VideoURL: "https://example.com/a"},
			{ID: "e2", Title: "Song B", Award: "best-song", VideoURL: "https://example.com/b"},
		},
	})
	d := h.driver(t, "")

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v\n%s", err, h.out.String())
	}
	metrics, err := os.ReadFile(h.cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	text := string(metrics)
	// The retry found both clips in place, so only skips were accepted.
	if !strings.Contains(text, `musicosa_stage_items_total{result="skipped",stage="5"} 2`) {
		t.Fatalf("expected the accepted attempt's skips in metrics:\n%s", text)
	}
	if strings.Contains(text, `result="generated",stage="5"`) {
		t.Fatalf("expected the first attempt's downloads not to be counted:\n%s", text)
	}
}

func TestDriverAbortStopsRun(t *testing.T) {
	h := newHarness(t)
	d := h.driver(t, "")

	err := d.Run(context.Background())
	if !errors.Is(err, flowgate.ErrAborted) {
		t.Fatalf("expected abort, got %v", err)
	}
	prompts := h.provider.Prompts()
	if len(prompts) != 1 || !prompts[0].OnError {
		t.Fatalf("expected one error prompt, got %+v", prompts)
	}
	if strings.Contains(h.out.String(), "[STAGE 2 |") {
		t.Fatal("expected the run to stop at stage 1")
	}

	metrics, err := os.ReadFile(h.cfg.Metrics.Textfile)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	if !strings.Contains(string(metrics), `outcome="aborted"`) {
		t.Fatalf("expected aborted stage in metrics:\n%s", metrics)
	}
}

func TestDriverMissingSettingIsFatal(t *testing.T) {
	h := newHarness(t, testsupport.WithStartFrom(pipeline.StageRanking))
	d := h.driver(t, "")

	err := d.Run(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !errors.Is(err, store.ErrSettingNotSet) {
		t.Fatalf("expected the missing setting to be reported, got %v", err)
	}
	if n := len(h.provider.Prompts()); n != 0 {
		t.Fatalf("expected no prompts for a fatal error, got %d", n)
	}
}

func TestNewRequiresWiring(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	if _, err := pipeline.New(nil, st, pipeline.Options{}); err == nil {
		t.Fatal("expected missing config to be rejected")
	}
	if _, err := pipeline.New(cfg, st, pipeline.Options{}); err == nil {
		t.Fatal("expected missing config loader to be rejected")
	}
}
