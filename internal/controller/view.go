package controller

import (
	"github.com/five82/notechain/internal/notes"
)

const maxSuggestions = 3

// View is the filtered projection of the collection.
type View struct {
	Filter      string
	Entries     []notes.Entry
	Stats       notes.Stats // over the full collection
	Suggestions []string
}

// View filters the current collection. It never mutates state.
func (c *Controller) View(filter string) View {
	items := c.store.Snapshot().Notes
	return BuildView(items, filter)
}

// BuildView filters items by filename and computes stats over all of them.
// Suggestions are offered only when a non-empty filter matches nothing.
func BuildView(items []notes.Note, filter string) View {
	v := View{
		Filter:  filter,
		Entries: notes.Filter(items, filter),
		Stats:   notes.ComputeStats(items),
	}
	if len(v.Entries) == 0 {
		v.Suggestions = notes.Suggest(items, filter, maxSuggestions)
	}
	return v
}
