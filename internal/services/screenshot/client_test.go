package screenshot_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"musicosa/internal/services"
	"musicosa/internal/services/screenshot"
)

type stubExecutor struct {
	args  [][]string
	err   error
	write bool
}

func (s *stubExecutor) Run(_ context.Context, _ string, args []string, _ func(string)) error {
	s.args = append(s.args, append([]string(nil), args...))
	if s.err != nil {
		return s.err
	}
	if s.write {
		for _, arg := range args {
			if dest, ok := strings.CutPrefix(arg, "--screenshot="); ok {
				return os.WriteFile(dest, []byte("png"), 0o644)
			}
		}
	}
	return nil
}

func TestProbeClassifiesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	client, err := screenshot.New("chromium", screenshot.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	cases := map[string]screenshot.ProbeOutcome{
		"/ok":      screenshot.Ready,
		"/missing": screenshot.Missing,
		"/broken":  screenshot.Unavailable,
	}
	for path, want := range cases {
		if got, _ := client.Probe(context.Background(), server.URL+path); got != want {
			t.Fatalf("Probe(%s) = %s, want %s", path, got, want)
		}
	}
	if got, code := client.Probe(context.Background(), "http://127.0.0.1:1/unreachable"); got != screenshot.Unavailable || code != 0 {
		t.Fatalf("expected unavailable with no status, got %s %d", got, code)
	}
}

func TestCaptureBuildsHeadlessArguments(t *testing.T) {
	exec := &stubExecutor{write: true}
	client, err := screenshot.New("chromium", screenshot.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "award", "entry.png")
	if err := client.Capture(context.Background(), "http://localhost/templates/1", dest, 1920, 1080); err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	got := strings.Join(exec.args[0], " ")
	want := "--headless --hide-scrollbars --window-size=1920,1080 --screenshot=" + dest + " http://localhost/templates/1"
	if got != want {
		t.Fatalf("unexpected args:\n%s\nwant\n%s", got, want)
	}
}

func TestCaptureFailures(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "entry.png")

	failing, _ := screenshot.New("chromium", screenshot.WithExecutor(&stubExecutor{err: errors.New("crashed")}))
	if err := failing.Capture(context.Background(), "http://x", dest, 10, 10); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}

	silent, _ := screenshot.New("chromium", screenshot.WithExecutor(&stubExecutor{}))
	if err := silent.Capture(context.Background(), "http://x", dest, 10, 10); err == nil || !strings.Contains(err.Error(), "no output file") {
		t.Fatalf("expected missing output error, got %v", err)
	}

	if err := silent.Capture(context.Background(), "http://x", dest, 0, 10); err == nil {
		t.Fatal("expected viewport error")
	}
	if _, err := screenshot.New("  "); err == nil {
		t.Fatal("expected error for empty binary")
	}
}
