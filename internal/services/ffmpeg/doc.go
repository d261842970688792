// Package ffmpeg runs ffmpeg for remuxing, compositing and loudness
// normalisation. Filter graphs are built by callers; this package owns the
// common flags and the in-place rewrite dance.
package ffmpeg
