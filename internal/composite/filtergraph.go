package composite

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"musicosa/internal/store"
)

// Encoding constants shared by video bits and final videos.
const (
	FPS          = 25
	VideoCodec   = "libx264"
	VideoBitrate = "6000k"
	FadeDuration = 0.5
	// EntriesPerFragment bounds the inputs of one final video encode.
	EntriesPerFragment = 10
)

// Transition configures the presentation to video bit cross-fade.
type Transition struct {
	Presentation float64
	Duration     float64
	Type         string
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func even(v int) int {
	return (v + 1) / 2 * 2
}

// VideoBitGraph scales input 0 into the template box and overlays it on the
// template image at input 1. The result is labelled [v].
func VideoBitGraph(t store.Template) string {
	return fmt.Sprintf(
		"[0:v]scale=w=%d:h=%d:force_original_aspect_ratio=decrease,"+
			"pad=width=%d:height=%d:x=(ow-iw)/2:y=(oh-ih)/2:color=black,setsar=sar=1[clip];"+
			"[1:v][clip]overlay=x=%d:y=%d:shortest=1[v]",
		t.VideoBoxWidth, t.VideoBoxHeight,
		even(t.VideoBoxWidth), even(t.VideoBoxHeight),
		t.VideoBoxLeft, t.VideoBoxTop,
	)
}

// FragmentGraph builds the filter graph of one final video fragment. Inputs
// come in pairs: presentation image at 2i and video bit at 2i+1, with
// durations holding each video bit's length. Outputs are [vout] and [aout].
func FragmentGraph(durations []float64, t Transition) string {
	var b strings.Builder
	var videos, audios strings.Builder
	cursor := 0.0
	offset := t.Presentation - t.Duration/2

	for i, d := range durations {
		pres, bit := 2*i, 2*i+1
		fmt.Fprintf(&b, "[%d:v]fps=%d,settb=AVTB,fade=t=in:d=%s[p%d];", pres, FPS, num(FadeDuration), i)
		fmt.Fprintf(&b, "[%d:v]settb=AVTB,fade=t=out:d=%s:st=%s[b%d];", bit, num(FadeDuration), num(math.Max(d-FadeDuration, 0)), i)
		fmt.Fprintf(&b, "[p%d][b%d]xfade=transition=%s:duration=%s:offset=%s[x%d];", i, i, t.Type, num(t.Duration), num(offset), i)

		start := cursor + offset
		delay := int64(math.Round(start * 1000))
		fmt.Fprintf(&b, "[%d:a]adelay=delays=%d|%d,afade=t=in:st=%s:d=%s:curve=tri,afade=t=out:st=%s:d=%s:curve=tri[a%d];",
			bit, delay, delay, num(start), num(FadeDuration), num(math.Max(start+d-FadeDuration, 0)), num(FadeDuration), i)
		cursor = start + d

		fmt.Fprintf(&videos, "[x%d]", i)
		fmt.Fprintf(&audios, "[a%d]", i)
	}
	fmt.Fprintf(&b, "%sconcat=n=%d:v=1:a=0[vout];", videos.String(), len(durations))
	fmt.Fprintf(&b, "%samix=inputs=%d:duration=longest:normalize=0[aout]", audios.String(), len(durations))
	return b.String()
}
