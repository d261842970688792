// Package screenshot renders template pages to PNG files with a headless
// browser. Pages are probed over HTTP first so that missing templates can be
// told apart from a server that is still warming up.
package screenshot
