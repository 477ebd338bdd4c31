package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/five82/notechain/internal/apperr"
	"github.com/five82/notechain/internal/notes"
)

func TestBuildView_CaseInsensitiveAndIdempotent(t *testing.T) {
	items := []notes.Note{
		{Filename: "Xylophone.pdf", Likes: 1},
		{Filename: "algebra.pdf", Likes: 2, Dislikes: 1},
		{Filename: "xray.png"},
	}

	upper := BuildView(items, "X")
	lower := BuildView(items, "x")
	if !reflect.DeepEqual(upper.Entries, lower.Entries) {
		t.Fatalf("X and x differ: %+v vs %+v", upper.Entries, lower.Entries)
	}
	if len(lower.Entries) != 2 || lower.Entries[1].Index != 2 {
		t.Fatalf("entries = %+v, want indexes 0 and 2", lower.Entries)
	}

	again := BuildView(items, "x")
	if !reflect.DeepEqual(again.Entries, lower.Entries) {
		t.Fatalf("filter not idempotent")
	}
	if lower.Stats != (notes.Stats{Notes: 3, Likes: 3, Dislikes: 1}) {
		t.Fatalf("Stats = %+v, want computed over the full collection", lower.Stats)
	}
	if lower.Suggestions != nil {
		t.Fatalf("Suggestions = %v, want none when entries match", lower.Suggestions)
	}
}

func TestBuildView_SuggestsOnEmptyResult(t *testing.T) {
	items := []notes.Note{{Filename: "algebra.txt"}, {Filename: "biology.pdf"}}

	v := BuildView(items, "agb")
	if len(v.Entries) != 0 {
		t.Fatalf("entries = %+v, want none", v.Entries)
	}
	if len(v.Suggestions) == 0 || v.Suggestions[0] != "algebra.txt" {
		t.Fatalf("Suggestions = %v, want algebra.txt first", v.Suggestions)
	}
}

func TestContentURLAndDownload(t *testing.T) {
	h := newHarness(t)
	h.pin.content = "hello"
	h.ledger.notes = []notes.Note{
		{Filename: "../notes/a.pdf", ContentID: "QmA"},
		{Filename: "none.pdf"},
		{Filename: "", ContentID: "QmB"},
	}
	h.connect(t)

	url, err := h.c.ContentURL(0)
	if err != nil || url != "https://gateway.test/ipfs/QmA" {
		t.Fatalf("ContentURL = %q, %v", url, err)
	}
	if _, err := h.c.ContentURL(1); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("ContentURL without cid error = %v, want ErrValidation", err)
	}
	if _, err := h.c.ContentURL(9); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("ContentURL out of range error = %v, want ErrValidation", err)
	}

	dir := t.TempDir()
	path, err := h.c.Download(context.Background(), 0, dir)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if path != filepath.Join(dir, "a.pdf") {
		t.Fatalf("path = %q, want a.pdf inside dir", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "hello" {
		t.Fatalf("downloaded = %q, %v", data, err)
	}

	path, err = h.c.Download(context.Background(), 2, dir)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if filepath.Base(path) != fallbackDownloadName {
		t.Fatalf("path = %q, want fallback name", path)
	}

	_, err = h.c.Download(context.Background(), 1, dir)
	if !errors.Is(err, apperr.ErrValidation) || err.Error() != msgMissingHash {
		t.Fatalf("Download error = %v, want %q", err, msgMissingHash)
	}
}

func TestDownload_KeepsExistingFile(t *testing.T) {
	h := newHarness(t)
	h.pin.content = "fresh"
	h.ledger.notes = []notes.Note{{Filename: "notes.tar.gz", ContentID: "QmA"}}
	h.connect(t)

	dir := t.TempDir()
	existing := filepath.Join(dir, "notes.tar.gz")
	if err := os.WriteFile(existing, []byte("mine"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	path, err := h.c.Download(context.Background(), 0, dir)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if path != filepath.Join(dir, "notes.tar (1).gz") {
		t.Fatalf("path = %q, want suffixed name", path)
	}
	if data, _ := os.ReadFile(existing); string(data) != "mine" {
		t.Fatalf("existing file = %q, want it untouched", data)
	}

	again, err := h.c.Download(context.Background(), 0, dir)
	if err != nil || filepath.Base(again) != "notes.tar (2).gz" {
		t.Fatalf("second Download = %q, %v, want notes.tar (2).gz", again, err)
	}
}
