package notes

import (
	"reflect"
	"testing"
)

func TestFilter_EmptyQueryKeepsAllWithIndices(t *testing.T) {
	got := Filter(sampleNotes(), "")
	if len(got) != 2 || got[0].Index != 0 || got[1].Index != 1 {
		t.Fatalf("Filter(empty) = %+v, want both entries in order", got)
	}
}

func TestFilter_WhitespaceIsLiteral(t *testing.T) {
	items := []Note{{Filename: "my notes.pdf"}, {Filename: "algebra.txt"}}
	got := Filter(items, " ")
	if len(got) != 1 || got[0].Index != 0 {
		t.Fatalf("Filter(space) = %+v, want only my notes.pdf", got)
	}
}

func TestFilter_CaseInsensitiveAndKeepsLedgerIndex(t *testing.T) {
	items := sampleNotes()

	upper := Filter(items, "B.TXT")
	lower := Filter(items, "b.txt")
	if !reflect.DeepEqual(upper, lower) {
		t.Fatalf("Filter upper = %+v, lower = %+v, want identical", upper, lower)
	}
	if len(lower) != 1 || lower[0].Index != 1 || lower[0].Note.Filename != "b.txt" {
		t.Fatalf("Filter = %+v, want b.txt at index 1", lower)
	}
}

func TestFilter_Idempotent(t *testing.T) {
	items := []Note{{Filename: "Lecture-01.pdf"}, {Filename: "lab.txt"}, {Filename: "LECTURE-02.pdf"}}
	once := Filter(items, "lecture")

	again := make([]Note, len(once))
	for i, e := range once {
		again[i] = e.Note
	}
	twice := Filter(again, "lecture")
	if len(once) != 2 || len(twice) != len(once) {
		t.Fatalf("Filter once = %d, twice = %d, want 2 and 2", len(once), len(twice))
	}
	for i := range once {
		if once[i].Note != twice[i].Note {
			t.Fatalf("Filter not idempotent at %d: %+v vs %+v", i, once[i].Note, twice[i].Note)
		}
	}
}

func TestFilter_UnicodeFolding(t *testing.T) {
	items := []Note{{Filename: "STRASSE.txt"}, {Filename: "Ωmega.pdf"}}
	if got := Filter(items, "ωMEGA"); len(got) != 1 || got[0].Index != 1 {
		t.Fatalf("Filter greek = %+v, want index 1", got)
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	items := sampleNotes()
	before := Clone(items)
	_ = Filter(items, "a")
	if !reflect.DeepEqual(items, before) {
		t.Fatalf("Filter mutated input")
	}
}

func TestSuggest(t *testing.T) {
	items := []Note{{Filename: "calculus-notes.pdf"}, {Filename: "chemistry.txt"}, {Filename: "calculus-notes.pdf"}}
	got := Suggest(items, "clcnotes", 3)
	if len(got) != 1 || got[0] != "calculus-notes.pdf" {
		t.Fatalf("Suggest = %v, want [calculus-notes.pdf]", got)
	}
	if Suggest(items, "", 3) != nil {
		t.Fatalf("Suggest with empty query should be nil")
	}
	if Suggest(items, "c", 0) != nil {
		t.Fatalf("Suggest with zero limit should be nil")
	}
}
