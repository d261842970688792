package ffmpeg_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"musicosa/internal/services"
	"musicosa/internal/services/ffmpeg"
)

type recordingExecutor struct {
	calls [][]string
	err   error
}

func (r *recordingExecutor) Run(_ context.Context, _ string, args []string, _ func(string)) error {
	r.calls = append(r.calls, append([]string(nil), args...))
	if r.err != nil {
		return r.err
	}
	// Materialise the last argument as the output file.
	return os.WriteFile(args[len(args)-1], []byte("out"), 0o644)
}

func TestRunAddsCommonFlags(t *testing.T) {
	exec := &recordingExecutor{}
	client, err := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	dst := filepath.Join(t.TempDir(), "out.mp4")
	if err := client.Remux(context.Background(), "in.webm", dst, true); err != nil {
		t.Fatalf("Remux failed: %v", err)
	}
	got := strings.Join(exec.calls[0], " ")
	want := "-y -hide_banner -loglevel error -i in.webm -c copy " + dst
	if got != want {
		t.Fatalf("unexpected args:\n%s\nwant\n%s", got, want)
	}
	if err := client.Remux(context.Background(), dst, dst, false); err == nil {
		t.Fatal("expected error remuxing onto itself")
	}
}

func TestNormalizeLoudnessReplacesFile(t *testing.T) {
	exec := &recordingExecutor{}
	client, _ := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(exec))
	path := filepath.Join(t.TempDir(), "1.mp4")
	if err := os.WriteFile(path, []byte("raw"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := client.NormalizeLoudness(context.Background(), path, false); err != nil {
		t.Fatalf("NormalizeLoudness failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "out" {
		t.Fatalf("expected normalized content, got %q err %v", data, err)
	}
	args := strings.Join(exec.calls[0], " ")
	if !strings.Contains(args, "-af loudnorm=I=-23:LRA=7:TP=-2") || !strings.Contains(args, "-ar 48000") {
		t.Fatalf("unexpected normalization args: %s", args)
	}
}

func TestRunWrapsFailures(t *testing.T) {
	client, _ := ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(&recordingExecutor{err: errors.New("exit 1")}))
	err := client.Concat(context.Background(), "list.txt", "final.mp4", false)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if _, err := ffmpeg.New(""); err == nil {
		t.Fatal("expected error for empty binary")
	}
}
