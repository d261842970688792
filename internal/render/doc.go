// Package render produces the template images of every entry by capturing
// the template pages served by the web front end.
//
// Each entry gets a template image and, when the final video is stitched, a
// presentation card. Existing images are kept unless overwriting is enabled.
// One entry failing never stops the batch; failures are reported in the
// result.
package render
