// Package notes holds the note model shared by the gateways, the controller
// and the presentation layer.
package notes

import (
	"strings"
)

const (
	// UntitledName replaces an empty filename read from the ledger.
	UntitledName = "Untitled"
	// UnknownUploader is displayed for the zero address.
	UnknownUploader = "Unknown"

	zeroAddress = "0x0000000000000000000000000000000000000000"
)

// Note is one entry of the ledger's append-only note list. Its identity is
// its index in that list.
type Note struct {
	Uploader  string `json:"uploader"`
	Filename  string `json:"filename"`
	ContentID string `json:"contentId"`
	Likes     uint64 `json:"likes"`
	Dislikes  uint64 `json:"dislikes"`
}

// HasContent reports whether the note points at pinned content.
func (n Note) HasContent() bool {
	return strings.TrimSpace(n.ContentID) != ""
}

// UploaderLabel returns the uploader address or UnknownUploader.
func (n Note) UploaderLabel() string {
	addr := strings.TrimSpace(n.Uploader)
	if addr == "" || strings.EqualFold(addr, zeroAddress) {
		return UnknownUploader
	}
	return addr
}

// Entry pairs a note with its ledger index so filtered views keep targeting
// the right note.
type Entry struct {
	Index int
	Note  Note
}

// Stats aggregates the whole collection.
type Stats struct {
	Notes    int
	Likes    uint64
	Dislikes uint64
}

// ComputeStats sums likes and dislikes over all notes.
func ComputeStats(items []Note) Stats {
	stats := Stats{Notes: len(items)}
	for _, n := range items {
		stats.Likes += n.Likes
		stats.Dislikes += n.Dislikes
	}
	return stats
}

// ShortAddress renders addr as its first head and last tail characters,
// e.g. 0x1234...abcd. Short inputs are returned unchanged.
func ShortAddress(addr string, head, tail int) string {
	if head < 0 {
		head = 0
	}
	if tail < 0 {
		tail = 0
	}
	if len(addr) <= head+tail+3 {
		return addr
	}
	return addr[:head] + "..." + addr[len(addr)-tail:]
}

// Clone returns an independent copy of items.
func Clone(items []Note) []Note {
	if len(items) == 0 {
		return nil
	}
	dup := make([]Note, len(items))
	copy(dup, items)
	return dup
}
