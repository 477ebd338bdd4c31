package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/five82/notechain/internal/apperr"
	"github.com/five82/notechain/internal/state"
)

const defaultDebounce = 500 * time.Millisecond

// Uploader is the part of the controller the drop-folder watcher drives.
type Uploader interface {
	SelectFile(path, name string) (state.PendingUpload, error)
	Upload(ctx context.Context) error
}

// UploadResult reports one file handled by Watch.
type UploadResult struct {
	Path string
	Err  error
}

// Watch uploads every regular file created or written in dir, once the file
// has been quiet for debounce. Uploads run one at a time in arrival order.
// onResult, when set, is called after each attempt. Watch blocks until ctx
// is done.
func Watch(ctx context.Context, dir string, up Uploader, debounce time.Duration, logger *slog.Logger, onResult func(UploadResult)) error {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch %s: not a directory", dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("watcher: started", slog.String("dir", dir))

	ready := make(chan debounced, 16)
	timers := make(map[string]debounced)
	uploaded := make(map[string]fileStamp)
	var seq uint64
	defer func() {
		for _, d := range timers {
			d.timer.Stop()
		}
	}()

	// schedule replaces any pending timer for path. A timer that already
	// fired carries an old seq and is dropped when it arrives.
	schedule := func(path string) {
		if prev, ok := timers[path]; ok {
			prev.timer.Stop()
		}
		seq++
		fired := debounced{path: path, seq: seq}
		timer := time.AfterFunc(debounce, func() {
			select {
			case ready <- fired:
			case <-ctx.Done():
			}
		})
		timers[path] = debounced{path: path, seq: fired.seq, timer: timer}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case d := <-ready:
			if cur, ok := timers[d.path]; !ok || cur.seq != d.seq {
				continue
			}
			path := d.path
			delete(timers, path)

			stamp, statErr := stampOf(path)
			if last, ok := uploaded[path]; ok && statErr == nil && last.same(stamp) {
				logger.Debug("watcher: unchanged since last upload", slog.String("path", path))
				continue
			}
			res := UploadResult{Path: path, Err: uploadOne(ctx, up, path)}
			switch {
			case res.Err == nil:
				if statErr == nil {
					uploaded[path] = stamp
				}
				logger.Info("watcher: uploaded", slog.String("path", path))
			case errors.Is(res.Err, apperr.ErrBusy):
				logger.Debug("watcher: upload busy, retrying", slog.String("path", path))
				schedule(path)
				continue
			default:
				logger.Warn("watcher: upload failed", slog.String("path", path), slog.String("error", res.Err.Error()))
			}
			if onResult != nil {
				onResult(res)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || ignored(ev.Name) {
				continue
			}
			if fi, statErr := os.Stat(ev.Name); statErr != nil || !fi.Mode().IsRegular() {
				continue
			}
			schedule(ev.Name)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

type debounced struct {
	path  string
	seq   uint64
	timer *time.Timer
}

// fileStamp identifies file content well enough to skip re-uploading it.
type fileStamp struct {
	size    int64
	modTime time.Time
}

func (s fileStamp) same(o fileStamp) bool {
	return s.size == o.size && s.modTime.Equal(o.modTime)
}

func stampOf(path string) (fileStamp, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return fileStamp{}, err
	}
	return fileStamp{size: fi.Size(), modTime: fi.ModTime()}, nil
}

func uploadOne(ctx context.Context, up Uploader, path string) error {
	if _, err := up.SelectFile(path, ""); err != nil {
		return err
	}
	return up.Upload(ctx)
}

// ignored skips hidden files and editor or download temporaries.
func ignored(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"):
		return true
	case strings.HasSuffix(base, ".part"), strings.HasSuffix(base, ".crdownload"), strings.HasSuffix(base, ".tmp"):
		return true
	}
	return false
}
