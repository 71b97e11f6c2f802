package collector

import (
	"context"
	"testing"

	"NomadScanner/internal/domain"
)

// fakeSource serves fixed pages keyed by cursor.
type fakeSource struct {
	pages map[string]fakePage
	calls int
}

type fakePage struct {
	entries []domain.Entry
	next    string
}

func (f *fakeSource) FetchPage(_ context.Context, _ domain.EntryQuery, pageAfter string) ([]domain.Entry, string, error) {
	f.calls++
	page := f.pages[pageAfter]
	return page.entries, page.next, nil
}

func entry(id, author string, datasets ...string) domain.Entry {
	e := domain.Entry{"entry_id": id, "main_author": author}
	if len(datasets) > 0 {
		raw := make([]any, 0, len(datasets))
		for _, ds := range datasets {
			raw = append(raw, map[string]any{"dataset_id": ds})
		}
		e["datasets"] = raw
	}
	return e
}

func twoPageSource() *fakeSource {
	return &fakeSource{pages: map[string]fakePage{
		"": {
			entries: []domain.Entry{
				entry("e1", "alice", "ds1"),
				entry("e2", "alice", "ds1"),
				entry("e5", "bob"),
			},
			next: "cursor-2",
		},
		"cursor-2": {
			entries: []domain.Entry{
				entry("e3", "alice", "ds2"),
				entry("e4", "alice", "ds1"),
				entry("e6", "bob"),
			},
		},
	}}
}

func scanOptions() Options {
	return Options{
		Code:           "CODE1",
		QueryBy:        QueryByProgram,
		AuthorQuantity: "main_author",
		Seed:           0,
		PageSize:       3,
		MaxAuthors:     1,
		MaxDatasets:    10,
	}
}

func TestCollectCodeScanMode(t *testing.T) {
	t.Parallel()

	source := twoPageSource()
	c := New(source, nil)

	result, err := c.CollectCode(context.Background(), scanOptions())
	if err != nil {
		t.Fatalf("CollectCode error: %v", err)
	}

	if source.calls != 2 {
		t.Fatalf("expected 2 pages fetched, got %d", source.calls)
	}

	if len(result.Picked) != 1 {
		t.Fatalf("expected exactly one representative, got %d", len(result.Picked))
	}
	pick := result.Picked[0]
	if pick.MainAuthor != "alice" {
		t.Fatalf("top author should be alice, got %s", pick.MainAuthor)
	}
	if pick.BucketEntryCount != 4 {
		t.Fatalf("expected bucket_entry_count 4, got %d", pick.BucketEntryCount)
	}
	if pick.PickedBy != "scan" {
		t.Fatalf("expected provenance marker scan, got %q", pick.PickedBy)
	}
	if pick.Code != "CODE1" {
		t.Fatalf("expected code tag, got %q", pick.Code)
	}
	// SHA-256("0:<id>") over e1..e4 is smallest for e2.
	if pick.EntryID != "e2" {
		t.Fatalf("unexpected representative: %s", pick.EntryID)
	}

	if result.Overview.Code != "CODE1" || result.Overview.NEntries != 6 || result.Overview.NMainAuthors != 2 {
		t.Fatalf("unexpected overview row: %+v", result.Overview)
	}
	if result.TotalEntries != 6 {
		t.Fatalf("expected 6 total entries, got %d", result.TotalEntries)
	}

	if len(result.AuthorRows) != 1 {
		t.Fatalf("expected 1 author row after the top-1 cut, got %d", len(result.AuthorRows))
	}
	row := result.AuthorRows[0]
	if row.MainAuthor != "alice" || row.NEntries != 4 || row.NDatasets != 2 {
		t.Fatalf("unexpected author row: %+v", row)
	}

	if len(result.AuthorDatasetRows) != 2 {
		t.Fatalf("expected 2 dataset rows for alice, got %d", len(result.AuthorDatasetRows))
	}
	if result.AuthorDatasetRows[0].DatasetID != "ds1" || result.AuthorDatasetRows[0].NEntries != 3 {
		t.Fatalf("unexpected dataset ranking: %+v", result.AuthorDatasetRows)
	}
}

func TestCollectCodeOrderIndependentRepresentative(t *testing.T) {
	t.Parallel()

	reversedSource := &fakeSource{pages: map[string]fakePage{
		"": {
			entries: []domain.Entry{
				entry("e6", "bob"),
				entry("e4", "alice", "ds1"),
				entry("e3", "alice", "ds2"),
			},
			next: "cursor-2",
		},
		"cursor-2": {
			entries: []domain.Entry{
				entry("e5", "bob"),
				entry("e2", "alice", "ds1"),
				entry("e1", "alice", "ds1"),
			},
		},
	}}

	c := New(reversedSource, nil)
	result, err := c.CollectCode(context.Background(), scanOptions())
	if err != nil {
		t.Fatalf("CollectCode error: %v", err)
	}

	if len(result.Picked) != 1 || result.Picked[0].EntryID != "e2" {
		t.Fatalf("representative changed with arrival order: %+v", result.Picked)
	}
}

func TestCollectCodeBulkMode(t *testing.T) {
	t.Parallel()

	opts := scanOptions()
	opts.CollectAll = true

	c := New(twoPageSource(), nil)
	result, err := c.CollectCode(context.Background(), opts)
	if err != nil {
		t.Fatalf("CollectCode error: %v", err)
	}

	if len(result.Picked) != 6 {
		t.Fatalf("bulk mode must keep every valid entry, got %d", len(result.Picked))
	}
	for _, picked := range result.Picked {
		if picked.PickedBy != "" || picked.BucketEntryCount != 0 {
			t.Fatalf("bulk entries must not carry provenance fields: %+v", picked)
		}
	}
	if result.Picked[0].EntryID != "e1" || result.Picked[5].EntryID != "e6" {
		t.Fatalf("bulk mode must preserve stream order: %+v", result.Picked)
	}
}

func TestCollectCodeSkipsInvalidEntries(t *testing.T) {
	t.Parallel()

	source := &fakeSource{pages: map[string]fakePage{
		"": {entries: []domain.Entry{
			{"main_author": "ghost"},                 // no entry_id
			{"entry_id": "e1"},                       // no author anywhere
			{"entry_id": "e2", "main_author": "   "}, // blank author
			{"entry_id": "e3", "metadata": map[string]any{"main_author": "carol"}}, // fallback field
			entry("e4", "carol"),
		}},
	}}

	opts := scanOptions()
	opts.MaxAuthors = 25

	c := New(source, nil)
	result, err := c.CollectCode(context.Background(), opts)
	if err != nil {
		t.Fatalf("CollectCode error: %v", err)
	}

	if result.TotalEntries != 2 {
		t.Fatalf("expected 2 valid entries, got %d", result.TotalEntries)
	}
	if result.Overview.NMainAuthors != 1 {
		t.Fatalf("expected one author bucket, got %d", result.Overview.NMainAuthors)
	}
	if len(result.Picked) != 1 || result.Picked[0].MainAuthor != "carol" {
		t.Fatalf("unexpected picks: %+v", result.Picked)
	}
}

func TestCollectCodeParserMode(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]any
	source := &querySpySource{onQuery: func(q domain.EntryQuery) { gotQuery = q.Query }}

	opts := scanOptions()
	opts.QueryBy = QueryByParser
	opts.Code = "parsers/vasp"

	c := New(source, nil)
	result, err := c.CollectCode(context.Background(), opts)
	if err != nil {
		t.Fatalf("CollectCode error: %v", err)
	}

	if gotQuery["parser_name"] != "parsers/vasp" {
		t.Fatalf("expected parser_name query, got %v", gotQuery)
	}
	if len(result.Picked) != 1 {
		t.Fatalf("expected one pick, got %d", len(result.Picked))
	}
	if result.Picked[0].EntryPoint != "parsers/vasp" || result.Picked[0].Code != "" {
		t.Fatalf("parser mode must tag entry_point instead of code: %+v", result.Picked[0])
	}
}

type querySpySource struct {
	onQuery func(domain.EntryQuery)
}

func (s *querySpySource) FetchPage(_ context.Context, q domain.EntryQuery, _ string) ([]domain.Entry, string, error) {
	s.onQuery(q)
	return []domain.Entry{entry("e1", "alice")}, "", nil
}

func TestNormalizeAuthorObjects(t *testing.T) {
	t.Parallel()

	if got := normalizeAuthor(map[string]any{"name": " Alice Smith "}); got != "Alice Smith" {
		t.Fatalf("unexpected author from name: %q", got)
	}
	if got := normalizeAuthor(map[string]any{"name": "", "email": "a@b.eu"}); got != "a@b.eu" {
		t.Fatalf("unexpected author from email: %q", got)
	}
	if got := normalizeAuthor(nil); got != "" {
		t.Fatalf("nil author must decline, got %q", got)
	}
	if got := normalizeAuthor(42.0); got != "" {
		t.Fatalf("numeric author must decline, got %q", got)
	}
}
