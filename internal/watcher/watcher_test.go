package watcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingUploader struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (u *recordingUploader) Upload(_ context.Context, filename string, r io.Reader) error {
	if _, err := io.ReadAll(r); err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return u.err
	}
	u.names = append(u.names, filename)
	return nil
}

func (u *recordingUploader) uploaded() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, len(u.names))
	copy(out, u.names)
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startWatcher(t *testing.T, u Uploader, dir string) (*Watcher, context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := New(u, WithSettleDelay(10*time.Millisecond), WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, dir) }()
	// Give the watch loop a moment to register before files appear.
	time.Sleep(50 * time.Millisecond)
	return w, cancel, done
}

func TestNew_NilUploader(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestWatch_UploadsCreatedPDF(t *testing.T) {
	dir := t.TempDir()
	u := &recordingUploader{}
	_, cancel, done := startWatcher(t, u, dir)
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("%PDF-1.4"), 0o600))

	require.Eventually(t, func() bool {
		names := u.uploaded()
		return len(names) == 1 && names[0] == "notes.pdf"
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWatch_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	u := &recordingUploader{}
	_, cancel, _ := startWatcher(t, u, dir)
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("plain"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.pdf"), []byte("%PDF-1.4"), 0o600))

	require.Eventually(t, func() bool {
		return len(u.uploaded()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, []string{"notes.pdf"}, u.uploaded())
}

func TestWatch_UploadFailureDoesNotStopWatching(t *testing.T) {
	dir := t.TempDir()
	u := &recordingUploader{err: errors.New("backend down")}
	_, cancel, _ := startWatcher(t, u, dir)
	defer cancel()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "first.pdf"), []byte("%PDF"), 0o600))
	time.Sleep(100 * time.Millisecond)

	u.mu.Lock()
	u.err = nil
	u.mu.Unlock()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "second.pdf"), []byte("%PDF"), 0o600))
	require.Eventually(t, func() bool {
		names := u.uploaded()
		return len(names) == 1 && names[0] == "second.pdf"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatch_MissingDirectory(t *testing.T) {
	u := &recordingUploader{}
	w, err := New(u, WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	err = w.Watch(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
