package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/five82/notechain/internal/state"
)

type recordingUploader struct {
	mu       sync.Mutex
	selected []string
	uploads  int

	// The first upload of blockOn signals started and waits for release.
	blockOn string
	started chan struct{}
	release chan struct{}
}

func (u *recordingUploader) SelectFile(path, name string) (state.PendingUpload, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.selected = append(u.selected, filepath.Base(path))
	return state.PendingUpload{Path: path, Filename: filepath.Base(path)}, nil
}

func (u *recordingUploader) Upload(context.Context) error {
	u.mu.Lock()
	u.uploads++
	block := u.blockOn != "" && len(u.selected) > 0 && u.selected[len(u.selected)-1] == u.blockOn
	if block {
		u.blockOn = ""
	}
	u.mu.Unlock()
	if block {
		close(u.started)
		<-u.release
	}
	return nil
}

func (u *recordingUploader) count(name string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, s := range u.selected {
		if s == name {
			n++
		}
	}
	return n
}

func TestWatch_UploadsDebouncedFiles(t *testing.T) {
	dir := t.TempDir()
	up := &recordingUploader{}
	results := make(chan UploadResult, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, up, 50*time.Millisecond, nil, func(r UploadResult) { results <- r })
	}()

	// Give the watcher time to register.
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(dir, "lecture.pdf")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("chunk"), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case r := <-results:
		if r.Err != nil || filepath.Base(r.Path) != "lecture.pdf" {
			t.Fatalf("result = %+v, want lecture.pdf uploaded", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no upload within 2s")
	}

	// Let any stray second debounce fire before checking counts.
	time.Sleep(150 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}

	up.mu.Lock()
	defer up.mu.Unlock()
	if up.uploads != 1 || len(up.selected) != 1 || up.selected[0] != "lecture.pdf" {
		t.Fatalf("selected = %v uploads = %d, want one debounced upload", up.selected, up.uploads)
	}
}

func TestWatch_WriteDuringOtherUploadUploadsOnce(t *testing.T) {
	dir := t.TempDir()
	up := &recordingUploader{
		blockOn: "a.pdf",
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	results := make(chan UploadResult, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, dir, up, 50*time.Millisecond, nil, func(r UploadResult) { results <- r })
	}()
	time.Sleep(50 * time.Millisecond)

	write := func(name string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte("content of "+name), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	write("a.pdf")
	time.Sleep(20 * time.Millisecond)
	write("b.pdf")

	select {
	case <-up.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("a.pdf upload never started")
	}
	// b.pdf's debounce fires while a.pdf is still uploading, then b.pdf is
	// written again with the same content.
	time.Sleep(100 * time.Millisecond)
	write("b.pdf")
	time.Sleep(50 * time.Millisecond)
	close(up.release)

	deadline := time.After(2 * time.Second)
	for got := 0; got < 2; {
		select {
		case r := <-results:
			if r.Err != nil {
				t.Fatalf("result = %+v, want success", r)
			}
			got++
		case <-deadline:
			t.Fatalf("expected uploads of a.pdf and b.pdf within 2s")
		}
	}

	// Let any stale or repeated debounce fire.
	time.Sleep(300 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	if n := up.count("b.pdf"); n != 1 {
		t.Fatalf("b.pdf uploaded %d times, want 1", n)
	}
	if n := up.count("a.pdf"); n != 1 {
		t.Fatalf("a.pdf uploaded %d times, want 1", n)
	}
}

func TestWatch_RejectsMissingDir(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "missing"), &recordingUploader{}, 0, nil, nil)
	if err == nil {
		t.Fatalf("Watch on missing dir returned nil error")
	}
}

func TestIgnored(t *testing.T) {
	tests := map[string]bool{
		"notes.pdf":           false,
		".notes.pdf.swp":      true,
		"draft.docx~":         true,
		"big.pdf.part":        true,
		"big.pdf.crdownload":  true,
		"/tmp/drop/photo.jpg": false,
	}
	for path, want := range tests {
		if got := ignored(path); got != want {
			t.Fatalf("ignored(%q) = %v, want %v", path, got, want)
		}
	}
}
