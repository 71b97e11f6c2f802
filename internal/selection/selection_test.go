package selection

import (
	"testing"

	"NomadScanner/internal/domain"
)

func entries(ids ...string) []domain.PickedEntry {
	result := make([]domain.PickedEntry, 0, len(ids))
	for _, id := range ids {
		result = append(result, domain.PickedEntry{EntryID: id})
	}
	return result
}

func reversed(in []domain.PickedEntry) []domain.PickedEntry {
	out := make([]domain.PickedEntry, len(in))
	for i, entry := range in {
		out[len(in)-1-i] = entry
	}
	return out
}

func TestStablePickOrderIndependent(t *testing.T) {
	t.Parallel()

	candidates := entries("a", "b", "c")

	first, ok := StablePick(candidates, 0)
	if !ok {
		t.Fatalf("expected a pick")
	}

	second, ok := StablePick(reversed(candidates), 0)
	if !ok {
		t.Fatalf("expected a pick on reversed input")
	}

	if first.EntryID != second.EntryID {
		t.Fatalf("pick depends on order: %s vs %s", first.EntryID, second.EntryID)
	}
	if first.EntryID != "a" {
		t.Fatalf("unexpected pick for seed 0: %s", first.EntryID)
	}
}

func TestStablePickSeedSensitive(t *testing.T) {
	t.Parallel()

	candidates := entries("a", "b", "c")

	base, _ := StablePick(candidates, 0)
	changed, _ := StablePick(candidates, 2)

	if base.EntryID == changed.EntryID {
		t.Fatalf("expected seed 2 to change the pick, both chose %s", base.EntryID)
	}
	if changed.EntryID != "c" {
		t.Fatalf("unexpected pick for seed 2: %s", changed.EntryID)
	}
}

func TestStablePickSkipsEmptyIDs(t *testing.T) {
	t.Parallel()

	candidates := []domain.PickedEntry{
		{EntryID: "", MainAuthor: "nobody"},
		{EntryID: "real"},
	}

	pick, ok := StablePick(candidates, 0)
	if !ok {
		t.Fatalf("expected a pick")
	}
	if pick.EntryID != "real" {
		t.Fatalf("unexpected pick: %s", pick.EntryID)
	}

	if _, ok := StablePick(entries(""), 0); ok {
		t.Fatalf("expected no pick when every candidate lacks an ID")
	}
	if _, ok := StablePick(nil, 0); ok {
		t.Fatalf("expected no pick for empty input")
	}
}

func TestStablePickTieKeepsFirst(t *testing.T) {
	t.Parallel()

	candidates := []domain.PickedEntry{
		{EntryID: "same", MainAuthor: "first"},
		{EntryID: "same", MainAuthor: "second"},
	}

	pick, ok := StablePick(candidates, 0)
	if !ok {
		t.Fatalf("expected a pick")
	}
	if pick.MainAuthor != "first" {
		t.Fatalf("tie should keep the first candidate, got %s", pick.MainAuthor)
	}
}

func TestDeduplicatePreservesFirstOccurrence(t *testing.T) {
	t.Parallel()

	input := []domain.PickedEntry{
		{EntryID: "x", Code: "A"},
		{EntryID: "x", Code: "B"},
		{EntryID: "y", Code: "C"},
		{EntryID: "", Code: "D"},
	}

	unique := Deduplicate(input)
	if len(unique) != 2 {
		t.Fatalf("expected 2 unique entries, got %d", len(unique))
	}
	if unique[0].EntryID != "x" || unique[0].Code != "A" {
		t.Fatalf("first occurrence not preserved: %+v", unique[0])
	}
	if unique[1].EntryID != "y" || unique[1].Code != "C" {
		t.Fatalf("unexpected second entry: %+v", unique[1])
	}
}

func TestNormalizeCodeName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"VASP/6.3":           "VASP_6.3",
		" Quantum Espresso ": "Quantum_Espresso",
		"":                   "unknown",
		"///":                "unknown",
		"abinit":             "abinit",
	}

	for input, want := range cases {
		if got := NormalizeCodeName(input); got != want {
			t.Fatalf("NormalizeCodeName(%q) = %q, want %q", input, got, want)
		}
	}
}
