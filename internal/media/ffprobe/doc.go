// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The composite stage uses it to learn clip durations before trimming and to
// time the fades of the final video.
package ffprobe
