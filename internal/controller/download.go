package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/five82/notechain/internal/apperr"
	"github.com/five82/notechain/internal/notes"
	"github.com/five82/notechain/internal/state"
)

const (
	fallbackDownloadName = "note"
	msgMissingHash       = "missing file hash"
)

// ContentURL returns the gateway URL of the note at index.
func (c *Controller) ContentURL(index int) (string, error) {
	note, err := c.noteAt(index)
	if err != nil {
		return "", err
	}
	if !note.HasContent() {
		return "", apperr.Validation(msgMissingHash)
	}
	return c.pinning.GatewayURL(note.ContentID), nil
}

// Download saves the content of the note at index into dir and returns the
// written path.
func (c *Controller) Download(ctx context.Context, index int, dir string) (string, error) {
	path, err := c.download(ctx, index, dir)
	if err != nil {
		c.fail("download", err)
		return "", err
	}
	return path, nil
}

func (c *Controller) download(ctx context.Context, index int, dir string) (string, error) {
	note, err := c.noteAt(index)
	if err != nil {
		return "", err
	}
	if !note.HasContent() {
		return "", apperr.Validation(msgMissingHash)
	}
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	f, target, err := createUnique(dir, downloadName(note.Filename))
	if err != nil {
		return "", err
	}

	callCtx, cancel := withTimeout(ctx, c.timeouts.Transaction)
	n, err := c.pinning.Download(callCtx, note.ContentID, f)
	err = timeoutErr(callCtx, err)
	cancel()
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(target)
		return "", err
	}

	c.logger.Info("note downloaded", slog.Int("index", index), slog.String("path", target), slog.Int64("bytes", n))
	c.store.Notify(state.NoticeSuccess, fmt.Sprintf("saved %s (%s)", target, humanize.Bytes(uint64(n))))
	return target, nil
}

func (c *Controller) noteAt(index int) (notes.Note, error) {
	items := c.store.Snapshot().Notes
	if index < 0 || index >= len(items) {
		return notes.Note{}, apperr.Validation(fmt.Sprintf("no note at index %d", index))
	}
	return items[index], nil
}

// downloadName strips directories from a ledger filename.
func downloadName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return fallbackDownloadName
	}
	return name
}

// maxNameAttempts bounds the "name (n).ext" candidates tried per download.
const maxNameAttempts = 1000

// createUnique creates name in dir without replacing an existing file. Taken
// names get a " (n)" suffix before the extension.
func createUnique(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; i < maxNameAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		target := filepath.Join(dir, candidate)
		f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, target, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("create %s: %w", target, err)
		}
	}
	return nil, "", fmt.Errorf("create %s: too many files with that name in %s", name, dir)
}
