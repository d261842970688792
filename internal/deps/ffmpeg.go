package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe reports the ffprobe binary paired with ffmpegCommand.
//
// Static ffmpeg builds ship ffprobe in the same directory, so a sibling of
// the resolved ffmpeg wins over whatever "ffprobe" resolves to on PATH.
func ResolveFFprobe(ffmpegCommand string) Status {
	result := Status{
		Name:        "FFprobe",
		Description: "Reads clip durations",
	}

	ffmpegBinary := strings.TrimSpace(ffmpegCommand)
	if ffmpegBinary != "" {
		if resolved, err := exec.LookPath(ffmpegBinary); err == nil {
			if candidate, ok := siblingCandidate(resolved, "ffprobe"); ok {
				if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
					result.Command = candidate
					result.Available = true
					return result
				}
			}
		}
	}

	ffprobeName := "ffprobe"
	if ffprobePath, err := exec.LookPath(ffprobeName); err == nil {
		result.Command = ffprobePath
		result.Available = true
		return result
	}

	result.Command = ffprobeName
	result.Available = false
	result.Detail = fmt.Sprintf("binary %q not found", ffprobeName)
	return result
}

func siblingCandidate(binaryPath, name string) (string, bool) {
	if binaryPath == "" {
		return "", false
	}
	dir := filepath.Dir(binaryPath)
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
