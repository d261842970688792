// Package composite builds the video bits and the stitched final videos.
//
// A video bit is the entry's template image with its clip scaled into the
// template's video box, trimmed to the entry's window (or the top-N override)
// and loudness normalised. The final video of an award plays every entry from
// the last ranked to the first, each introduced by its presentation card.
// Final videos are assembled in fragments of ten entries that are then joined
// without re-encoding.
package composite
