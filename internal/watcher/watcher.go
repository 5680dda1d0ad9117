// Package watcher uploads PDF documents as they appear in a watched
// directory, turning a drop folder into the session's file registry.
package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"pdfchat/internal/usecase"
)

// Uploader is the slice of the session controller the watcher drives.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) error
}

// Watcher monitors a directory and uploads newly created PDFs.
type Watcher struct {
	fs       *fsnotify.Watcher
	uploader Uploader
	logger   *slog.Logger
	settle   time.Duration
}

type Option func(*Watcher)

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithSettleDelay adjusts how long the watcher waits after a create event
// before reading the file, so the writer can finish.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.settle = d
		}
	}
}

func New(uploader Uploader, opts ...Option) (*Watcher, error) {
	if uploader == nil {
		return nil, errors.New("watcher: uploader must not be nil")
	}
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:       fs,
		uploader: uploader,
		logger:   slog.Default(),
		settle:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch blocks, uploading each PDF created under dir, until ctx is cancelled
// or the underlying watcher closes. Upload failures are logged and skipped;
// the watch keeps running.
func (w *Watcher) Watch(ctx context.Context, dir string) error {
	if err := w.fs.Add(dir); err != nil {
		return err
	}
	w.logger.Info("watching for documents", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, usecase.DocumentExt) {
				continue
			}
			if err := w.upload(ctx, event.Name); err != nil {
				w.logger.Warn("upload skipped", "path", event.Name, "err", err)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) upload(ctx context.Context, path string) error {
	// Let the writer finish before reading.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(w.settle):
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	name := filepath.Base(path)
	if err := w.uploader.Upload(ctx, name, f); err != nil {
		return err
	}
	w.logger.Info("uploaded", "file", name)
	return nil
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
