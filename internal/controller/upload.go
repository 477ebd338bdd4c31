package controller

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/five82/notechain/internal/apperr"
	"github.com/five82/notechain/internal/state"
)

const (
	msgSelectFile    = "select a file first"
	msgConnectWallet = "connect your wallet first"
	msgUploaded      = "note uploaded & reward sent"
)

// SelectFile validates path and makes it the pending upload. name overrides
// the recorded filename; empty uses the file's base name.
func (c *Controller) SelectFile(path, name string) (state.PendingUpload, error) {
	pending, err := c.checkFile(path, name)
	if err != nil {
		c.fail("select file", err)
		return state.PendingUpload{}, err
	}
	c.store.SelectFile(pending)
	c.logger.Info("file selected",
		slog.String("path", pending.Path),
		slog.String("filename", pending.Filename),
		slog.Int64("size", pending.Size))
	return pending, nil
}

func (c *Controller) checkFile(path, name string) (state.PendingUpload, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return state.PendingUpload{}, apperr.Validation(msgSelectFile)
	}
	info, err := os.Stat(path)
	if err != nil {
		return state.PendingUpload{}, apperr.Validation(fmt.Sprintf("cannot read %s: %v", path, err))
	}
	if !info.Mode().IsRegular() {
		return state.PendingUpload{}, apperr.Validation(path + " is not a regular file")
	}
	if limit := c.limits.MaxFileSize; limit > 0 && info.Size() > limit {
		return state.PendingUpload{}, apperr.Validation(fmt.Sprintf("%s is %s, larger than the %s limit",
			filepath.Base(path), humanize.Bytes(uint64(info.Size())), humanize.Bytes(uint64(limit))))
	}
	if allowed := c.limits.AllowedExtensions; len(allowed) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		if !slices.Contains(allowed, ext) {
			return state.PendingUpload{}, apperr.Validation(fmt.Sprintf("%s files are not accepted (allowed: %s)",
				extLabel(ext), strings.Join(allowed, " ")))
		}
	}

	filename := strings.TrimSpace(name)
	if filename == "" {
		filename = filepath.Base(path)
	}
	return state.PendingUpload{Path: path, Filename: filename, Size: info.Size()}, nil
}

func extLabel(ext string) string {
	if ext == "" {
		return "extensionless"
	}
	return ext
}

// Upload pins the pending file and records it on the ledger from the
// session account. The pending file is kept when either step fails.
func (c *Controller) Upload(ctx context.Context) error {
	pending, ok := c.store.Pending()
	if !ok {
		err := apperr.Validation(msgSelectFile)
		c.fail("upload", err)
		return err
	}
	session := c.wallet.Session()
	if !session.Present() {
		err := apperr.Validation(msgConnectWallet)
		c.fail("upload", err)
		return err
	}
	if !c.store.TryBeginUpload() {
		c.logger.Debug("upload ignored, another upload is running")
		return apperr.Wrap(apperr.ErrBusy, fmt.Errorf("upload of %s ignored", pending.Filename))
	}

	ended := false
	end := func(success bool) {
		if !ended {
			ended = true
			c.store.EndUpload(success)
		}
	}
	defer end(false)

	c.logger.Info("upload started", slog.String("filename", pending.Filename), slog.String("path", pending.Path))
	cid, err := c.pin(ctx, pending)
	if err != nil {
		c.fail("upload", err)
		return err
	}

	callCtx, cancel := withTimeout(ctx, c.timeouts.Transaction)
	err = c.ledger.SubmitUpload(callCtx, pending.Filename, cid, session.Account)
	err = timeoutErr(callCtx, err)
	cancel()
	if err != nil {
		c.handleOrphan(ctx, pending, cid, err)
		c.fail("upload", err)
		return err
	}

	end(true)
	c.logger.Info("upload recorded", slog.String("filename", pending.Filename), slog.String("cid", cid))
	c.store.Notify(state.NoticeSuccess, msgUploaded)
	_ = c.Reload(ctx)
	return nil
}

func (c *Controller) pin(ctx context.Context, pending state.PendingUpload) (string, error) {
	f, err := os.Open(pending.Path)
	if err != nil {
		return "", apperr.Validation(fmt.Sprintf("cannot read %s: %v", pending.Path, err))
	}
	defer func() { _ = f.Close() }()

	callCtx, cancel := withTimeout(ctx, c.timeouts.Transaction)
	defer cancel()
	cid, err := c.pinning.Pin(callCtx, pending.Filename, f)
	if err != nil {
		return "", timeoutErr(callCtx, apperr.Wrap(apperr.ErrPinning, err))
	}
	c.logger.Info("file pinned", slog.String("filename", pending.Filename), slog.String("cid", cid))
	return cid, nil
}

// handleOrphan deals with content pinned for a ledger record that was never
// written: unpin when allowed, otherwise remember it.
func (c *Controller) handleOrphan(ctx context.Context, pending state.PendingUpload, cid string, cause error) {
	if c.unpinOrphans {
		callCtx, cancel := withTimeout(ctx, c.timeouts.Call)
		err := c.pinning.Unpin(callCtx, cid)
		cancel()
		if err == nil {
			c.logger.Info("orphaned pin removed", slog.String("cid", cid))
			return
		}
		c.logger.Warn("unpin failed", slog.String("cid", cid), slog.String("error", err.Error()))
	}
	c.logger.Warn("orphaned pin",
		slog.String("cid", cid),
		slog.String("filename", pending.Filename),
		slog.String("error", cause.Error()))
	c.store.RecordOrphan(state.OrphanedPin{ContentID: cid, Filename: pending.Filename, Err: cause})
}
