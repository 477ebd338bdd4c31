package notes

import (
	"strings"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"
)

// Filter returns the notes whose filename contains query, compared with
// Unicode case folding. An empty query matches everything. Entries keep the
// ledger index of each note. The query is used as typed, so " " matches
// only names containing a space.
func Filter(items []Note, query string) []Entry {
	needle := fold(query)
	out := make([]Entry, 0, len(items))
	for i, n := range items {
		if needle != "" && !strings.Contains(fold(n.Filename), needle) {
			continue
		}
		out = append(out, Entry{Index: i, Note: n})
	}
	return out
}

// Suggest returns up to limit filenames that fuzzily match query. It is
// meant for an empty filter result, so exact substring hits are not
// expected here.
func Suggest(items []Note, query string, limit int) []string {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 || len(items) == 0 {
		return nil
	}
	names := make([]string, len(items))
	for i, n := range items {
		names[i] = fold(n.Filename)
	}
	matches := fuzzy.Find(fold(query), names)

	seen := make(map[string]bool, limit)
	var out []string
	for _, m := range matches {
		name := items[m.Index].Filename
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
		if len(out) == limit {
			break
		}
	}
	return out
}

func fold(s string) string {
	return cases.Fold().String(s)
}
