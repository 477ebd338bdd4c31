package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

const maxLineBytes = 1024 * 1024

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	lines, err := tail(file, maxLines)
	if err != nil {
		return nil, fmt.Errorf("read log %s: %w", path, err)
	}
	return lines, nil
}

// tail keeps a sliding window of the last limit lines of r.
func tail(r io.Reader, limit int) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var window []string
	for scanner.Scan() {
		window = append(window, scanner.Text())
		if limit > 0 && len(window) > 2*limit {
			// Compact occasionally instead of shifting on every line.
			window = append(window[:0], window[len(window)-limit:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if limit > 0 && len(window) > limit {
		window = window[len(window)-limit:]
	}
	return window, nil
}
