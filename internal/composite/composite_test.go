package composite_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"musicosa/internal/artifacts"
	"musicosa/internal/composite"
	"musicosa/internal/media/ffprobe"
	"musicosa/internal/store"
	"musicosa/internal/timecode"
)

type fakeEncoder struct {
	runs         [][]string
	normalizeErr error
	concatList   string
	concatCalls  int
}

func (f *fakeEncoder) Run(_ context.Context, args []string, _ bool) error {
	f.runs = append(f.runs, append([]string(nil), args...))
	return os.WriteFile(args[len(args)-1], []byte("video"), 0o644)
}

func (f *fakeEncoder) NormalizeLoudness(context.Context, string, bool) error {
	return f.normalizeErr
}

func (f *fakeEncoder) Concat(_ context.Context, listFile, dst string, _ bool) error {
	f.concatCalls++
	data, err := os.ReadFile(listFile)
	if err != nil {
		return err
	}
	f.concatList = string(data)
	return os.WriteFile(dst, []byte("final"), 0o644)
}

type fakeProber struct {
	durations map[string]string
	silent    bool
}

func (f *fakeProber) Inspect(_ context.Context, path string) (ffprobe.Result, error) {
	d, ok := f.durations[path]
	if !ok {
		d = "60"
	}
	res := ffprobe.Result{Format: ffprobe.Format{Duration: d}}
	if !f.silent {
		res.Streams = []ffprobe.Stream{{CodecType: "video"}, {CodecType: "audio"}}
	}
	return res, nil
}

func window(start, end int) *store.VideoOptions {
	return &store.VideoOptions{Start: timecode.FromSeconds(start), End: timecode.FromSeconds(end)}
}

var limits = composite.Limits{DefaultDuration: 30, OverrideTopN: 0, OverrideUpTo: 0}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func fullItem(t *testing.T, layout artifacts.Layout, seq int) composite.Item {
	t.Helper()
	e := store.Entry{ID: fmt.Sprintf("e%d", seq), Title: fmt.Sprintf("Song %d", seq), Award: "best-song"}
	touch(t, layout.EntryImage(e))
	touch(t, layout.Clip(e))
	touch(t, layout.PresentationImage(e))
	return composite.Item{
		Entry:    e,
		Sequence: seq,
		Template: &store.Template{EntryID: e.ID, VideoBoxWidth: 640, VideoBoxHeight: 360, VideoBoxTop: 100, VideoBoxLeft: 50},
		Window:   window(10, 40),
	}
}

func layoutIn(t *testing.T) artifacts.Layout {
	dir := t.TempDir()
	return artifacts.Layout{Artifacts: filepath.Join(dir, "artifacts"), VideoBits: filepath.Join(dir, "bits")}
}

func TestPlanTrim(t *testing.T) {
	l := composite.Limits{DefaultDuration: 30, OverrideTopN: 2, OverrideUpTo: 60}
	w := *window(10, 40)
	cases := []struct {
		name    string
		seq     int
		clip    float64
		limits  composite.Limits
		args    []string
		warning bool
	}{
		{"override applies", 1, 120, l, []string{"-ss", "0", "-t", "60"}, false},
		{"override longer than clip", 2, 40, l, nil, true},
		{"override zero plays whole clip", 1, 120, composite.Limits{DefaultDuration: 30, OverrideTopN: 3}, nil, false},
		{"window", 3, 120, l, []string{"-ss", "00:00:10", "-to", "00:00:40"}, false},
		{"end past clip", 3, 20, l, []string{"-ss", "00:00:10", "-to", "00:00:40"}, true},
		{"start past clip", 3, 10, l, []string{"-ss", "0", "-t", "30"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := composite.PlanTrim(tc.seq, tc.clip, w, tc.limits)
			if !reflect.DeepEqual(got.Args, tc.args) {
				t.Fatalf("args = %v, want %v", got.Args, tc.args)
			}
			if (got.Warning != "") != tc.warning {
				t.Fatalf("warning = %q, want warning %v", got.Warning, tc.warning)
			}
		})
	}
}

func TestLimitsFromRequiresSettings(t *testing.T) {
	v := "30"
	settings := store.Settings{
		store.KeyEntryVideoDuration:     {Group: "validation", Name: "entry_video_duration_seconds", Type: store.SettingInteger, Value: &v},
		store.KeyVideoclipsOverrideTopN: {Group: "generation", Name: "videoclips_override_top_n_duration", Type: store.SettingInteger},
	}
	_, err := composite.LimitsFrom(settings)
	if !errors.Is(err, store.ErrSettingNotSet) || !strings.Contains(err.Error(), store.KeyVideoclipsOverrideTopN) {
		t.Fatalf("expected missing top-n setting, got %v", err)
	}
}

func TestVideoBitGraphPadsToEvenSize(t *testing.T) {
	got := composite.VideoBitGraph(store.Template{VideoBoxWidth: 641, VideoBoxHeight: 359, VideoBoxTop: 7, VideoBoxLeft: 9})
	for _, want := range []string{
		"scale=w=641:h=359:force_original_aspect_ratio=decrease",
		"pad=width=642:height=360",
		"overlay=x=9:y=7:shortest=1[v]",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("graph %q missing %q", got, want)
		}
	}
}

func TestFragmentGraphTimeline(t *testing.T) {
	got := composite.FragmentGraph([]float64{30, 20}, composite.Transition{Presentation: 5, Duration: 1, Type: "fade"})
	for _, want := range []string{
		"[0:v]fps=25,settb=AVTB,fade=t=in:d=0.5[p0];",
		"[1:v]settb=AVTB,fade=t=out:d=0.5:st=29.5[b0];",
		"[p0][b0]xfade=transition=fade:duration=1:offset=4.5[x0];",
		"[1:a]adelay=delays=4500|4500,afade=t=in:st=4.5:d=0.5:curve=tri,afade=t=out:st=34:d=0.5:curve=tri[a0];",
		"[3:a]adelay=delays=39000|39000,",
		"[x0][x1]concat=n=2:v=1:a=0[vout];",
		"[a0][a1]amix=inputs=2:duration=longest:normalize=0[aout]",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("graph missing %q:\n%s", want, got)
		}
	}
}

func TestComposeRecordsMissingSourcesAndSkipsFinal(t *testing.T) {
	layout := layoutIn(t)
	ok := fullItem(t, layout, 1)
	noClip := fullItem(t, layout, 2)
	if err := os.Remove(layout.Clip(noClip.Entry)); err != nil {
		t.Fatal(err)
	}
	noTemplate := fullItem(t, layout, 3)
	noTemplate.Template = nil

	enc := &fakeEncoder{}
	res, err := composite.New(enc, &fakeProber{}, nil, "run1").Compose(context.Background(), limits, composite.Options{
		Layout:     layout,
		Stitch:     true,
		FinalName:  "final",
		Transition: composite.Transition{Presentation: 5, Duration: 1, Type: "fade"},
	}, []composite.Item{ok, noClip, noTemplate})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if len(res.Generated) != 1 || res.Generated[0] != layout.VideoBit("best-song", 1) {
		t.Fatalf("unexpected generated: %v", res.Generated)
	}
	if len(res.Missing) != 2 {
		t.Fatalf("expected 2 missing records, got %+v", res.Missing)
	}
	if len(res.SkippedAwards) != 1 || !strings.Contains(res.SkippedAwards[0].Reason, "2 missing video bits") {
		t.Fatalf("expected award skipped, got %+v", res.SkippedAwards)
	}
	args := strings.Join(enc.runs[0], " ")
	for _, want := range []string{"-ss 00:00:10 -to 00:00:40 -i ", "-loop 1 -i ", "-c:v libx264 -b:v 6000k", "-map 0:a?"} {
		if !strings.Contains(args, want) {
			t.Fatalf("video bit args %q missing %q", args, want)
		}
	}
}

func TestComposeSkipsExistingAndWarnsOnNormalization(t *testing.T) {
	layout := layoutIn(t)
	first := fullItem(t, layout, 1)
	second := fullItem(t, layout, 2)
	touch(t, layout.VideoBit("best-song", 1))

	enc := &fakeEncoder{normalizeErr: errors.New("loudnorm exploded")}
	res, err := composite.New(enc, &fakeProber{silent: true}, nil, "run1").Compose(context.Background(), limits,
		composite.Options{Layout: layout}, []composite.Item{first, second})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if len(res.Skipped) != 1 || len(res.Generated) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Warnings) != 2 {
		t.Fatalf("expected audio and normalisation warnings, got %v", res.Warnings)
	}
}

func TestComposeStitchesFragments(t *testing.T) {
	layout := layoutIn(t)
	var items []composite.Item
	for seq := 1; seq <= 12; seq++ {
		items = append(items, fullItem(t, layout, seq))
	}
	enc := &fakeEncoder{}
	res, err := composite.New(enc, &fakeProber{}, nil, "run1").Compose(context.Background(), limits, composite.Options{
		Layout:     layout,
		Stitch:     true,
		FinalName:  "final",
		Transition: composite.Transition{Presentation: 5, Duration: 1, Type: "fade"},
	}, items)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if len(res.Generated) != 12 {
		t.Fatalf("expected 12 video bits, got %d", len(res.Generated))
	}
	final := layout.FinalVideo("best-song", "final")
	if len(res.FinalVideos) != 1 || res.FinalVideos[0] != final {
		t.Fatalf("unexpected final videos: %v (failed %+v)", res.FinalVideos, res.Failed)
	}
	if enc.concatCalls != 1 || enc.concatList != "file 'fragment-0.mp4'\nfile 'fragment-1.mp4'\n" {
		t.Fatalf("unexpected concat: %d %q", enc.concatCalls, enc.concatList)
	}

	fragmentRuns := enc.runs[12:]
	if len(fragmentRuns) != 2 {
		t.Fatalf("expected 2 fragment encodes, got %d", len(fragmentRuns))
	}
	firstInput := fragmentRuns[0][5]
	if firstInput != layout.PresentationImage(items[11].Entry) {
		t.Fatalf("first fragment should open with the last ranked entry, got %s", firstInput)
	}
	if !strings.Contains(strings.Join(fragmentRuns[0], " "), "-filter_complex_script") {
		t.Fatalf("fragment encode should read its graph from a script: %v", fragmentRuns[0])
	}

	entries, err := os.ReadDir(layout.VideoBitsDir("best-song"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".work-") {
			t.Fatalf("workspace %s left behind", e.Name())
		}
	}
}

func TestComposeSingleFragmentIsMovedIntoPlace(t *testing.T) {
	layout := layoutIn(t)
	items := []composite.Item{fullItem(t, layout, 1), fullItem(t, layout, 2)}
	enc := &fakeEncoder{}
	res, err := composite.New(enc, &fakeProber{}, nil, "run1").Compose(context.Background(), limits, composite.Options{
		Layout:     layout,
		Stitch:     true,
		FinalName:  "final",
		Transition: composite.Transition{Presentation: 5, Duration: 1, Type: "fade"},
	}, items)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if enc.concatCalls != 0 {
		t.Fatal("single fragment must not be concatenated")
	}
	if len(res.FinalVideos) != 1 {
		t.Fatalf("expected final video, got %+v", res)
	}
	if _, err := os.Stat(res.FinalVideos[0]); err != nil {
		t.Fatalf("final video missing: %v", err)
	}
}
