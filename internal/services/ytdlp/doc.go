// Package ytdlp wraps the yt-dlp command line downloader.
package ytdlp
