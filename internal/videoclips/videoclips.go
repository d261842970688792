// Package videoclips downloads the source video of every entry.
package videoclips

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"musicosa/internal/artifacts"
	"musicosa/internal/logging"
	"musicosa/internal/services/ytdlp"
	"musicosa/internal/store"
)

// Remuxer rewraps a downloaded file into MP4 without re-encoding.
type Remuxer interface {
	Remux(ctx context.Context, src, dst string, quiet bool) error
}

// Options controls one acquisition pass.
type Options struct {
	Layout      artifacts.Layout
	QuietFFmpeg bool
}

// Failure records an entry whose clip could not be fetched.
type Failure struct {
	EntryID string
	Title   string
	Reason  string
}

// Result lists entry titles by outcome.
type Result struct {
	Downloaded []string
	Skipped    []string
	Failed     []Failure
}

// Acquirer downloads clips and normalises their container.
type Acquirer struct {
	downloader ytdlp.Downloader
	remuxer    Remuxer
	logger     *slog.Logger
}

// New builds an acquirer.
func New(downloader ytdlp.Downloader, remuxer Remuxer, logger *slog.Logger) *Acquirer {
	return &Acquirer{
		downloader: downloader,
		remuxer:    remuxer,
		logger:     logging.NewComponentLogger(logger, "videoclips"),
	}
}

// Acquire fetches the clip of every entry that does not have one on disk.
// Entries without a video URL count as failures.
func (a *Acquirer) Acquire(ctx context.Context, opts Options, entries []store.Entry) (Result, error) {
	var res Result
	if a.downloader == nil || a.remuxer == nil {
		return res, errors.New("videoclips: downloader and remuxer required")
	}
	for idx, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		attrs := []logging.Attr{
			logging.Int("index", idx+1),
			logging.String(logging.FieldAward, e.Award),
			logging.String(logging.FieldEntryID, e.ID),
			logging.String("title", e.Title),
		}
		dest := opts.Layout.Clip(e)
		if info, err := os.Stat(dest); err == nil && !info.IsDir() {
			res.Skipped = append(res.Skipped, e.Title)
			a.logger.Info("videoclip exists, skipping", logging.Args(attrs...)...)
			continue
		}

		a.logger.Info("downloading videoclip", logging.Args(append(attrs, logging.String("url", e.VideoURL))...)...)
		if err := a.fetch(ctx, opts, e, dest); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed = append(res.Failed, Failure{EntryID: e.ID, Title: e.Title, Reason: err.Error()})
			logging.WarnWithContext(a.logger, "videoclip download failed", "videoclip_failed",
				append(attrs, logging.Error(err))...)
			continue
		}
		res.Downloaded = append(res.Downloaded, e.Title)
		a.logger.Info("videoclip downloaded", logging.Args(append(attrs, logging.String("path", dest))...)...)
	}
	return res, nil
}

func (a *Acquirer) fetch(ctx context.Context, opts Options, e store.Entry, dest string) error {
	if strings.TrimSpace(e.VideoURL) == "" {
		return errors.New("entry has no video URL")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create clip folder: %w", err)
	}
	downloaded, err := a.downloader.Download(ctx, e.VideoURL, opts.Layout.ClipBase(e))
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(downloaded), artifacts.VideoExt) {
		if downloaded != dest {
			if err := os.Rename(downloaded, dest); err != nil {
				return fmt.Errorf("move %s: %w", filepath.Base(downloaded), err)
			}
		}
		return nil
	}
	a.logger.Info("remuxing videoclip to mp4", logging.String("source", filepath.Base(downloaded)))
	if err := a.remuxer.Remux(ctx, downloaded, dest, opts.QuietFFmpeg); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("remux %s: %w", filepath.Base(downloaded), err)
	}
	if err := os.Remove(downloaded); err != nil {
		logging.WarnWithContext(a.logger, "failed to remove remuxed source", "videoclip_cleanup_failed",
			logging.String("path", downloaded), logging.Error(err))
	}
	return nil
}
