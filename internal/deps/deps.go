package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"musicosa/internal/config"
)

// Requirement defines an external binary a stage shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Stage is the first stage that invokes the binary.
	Stage    int
	Optional bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Stage       int
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configured run needs. Binaries only
// used by stages before start_from are reported as optional.
func Requirements(cfg *config.Config) []Requirement {
	start := config.FirstStage
	if cfg != nil {
		start = cfg.StartFrom
	}
	ffmpeg := "ffmpeg"
	screenshot, downloader := "chromium", "yt-dlp"
	if cfg != nil {
		ffmpeg = cfg.FFmpegBinary()
		screenshot = cfg.ScreenshotBinary()
		downloader = cfg.DownloaderBinary()
	}
	ffprobe := ResolveFFprobe(ffmpeg)
	reqs := []Requirement{
		{Name: "Screenshot", Command: screenshot, Description: "Renders template and presentation images", Stage: 4},
		{Name: "Downloader", Command: downloader, Description: "Downloads entry video clips", Stage: 5},
		{Name: "FFmpeg", Command: ffmpeg, Description: "Remuxes clips and composes video bits", Stage: 5},
		{Name: "FFprobe", Command: ffprobe.Command, Description: "Reads clip durations", Stage: 6},
	}
	for i := range reqs {
		reqs[i].Optional = reqs[i].Stage < start
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Stage:       req.Stage,
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are not available.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
