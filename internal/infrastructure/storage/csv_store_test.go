package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"NomadScanner/internal/domain"
)

func sampleTables() domain.SummaryTables {
	return domain.SummaryTables{
		CodeOverview: []domain.CodeOverviewRow{
			{Code: "CODE1", NEntries: 6, NMainAuthors: 2, NDatasets: 2},
		},
		CodeAuthor: []domain.CodeAuthorRow{
			{Code: "CODE1", MainAuthor: "alice", NEntries: 4, NDatasets: 2},
		},
		CodeAuthorDataset: []domain.CodeAuthorDatasetRow{
			{Code: "CODE1", MainAuthor: "alice", DatasetID: "ds1", NEntries: 3},
		},
		GlobalAuthorDataset: []domain.GlobalAuthorDatasetRow{
			{MainAuthor: "alice", DatasetID: "ds1", NEntries: 3},
		},
	}
}

func TestTablesRoundTrip(t *testing.T) {
	t.Parallel()

	store := NewCSVStore(t.TempDir(), nil)

	if err := store.SaveTables(sampleTables()); err != nil {
		t.Fatalf("SaveTables error: %v", err)
	}

	loaded, err := store.LoadTables()
	if err != nil {
		t.Fatalf("LoadTables error: %v", err)
	}
	if !reflect.DeepEqual(loaded, sampleTables()) {
		t.Fatalf("round trip mismatch:\nsaved:  %+v\nloaded: %+v", sampleTables(), loaded)
	}
}

func TestLoadTablesMissingFilesAreEmpty(t *testing.T) {
	t.Parallel()

	store := NewCSVStore(t.TempDir(), nil)

	tables, err := store.LoadTables()
	if err != nil {
		t.Fatalf("LoadTables error: %v", err)
	}
	if len(tables.CodeOverview) != 0 || len(tables.CodeAuthor) != 0 {
		t.Fatalf("expected empty tables, got %+v", tables)
	}
}

func TestWritePickedEntriesNormalizesFilename(t *testing.T) {
	t.Parallel()

	store := NewCSVStore(t.TempDir(), nil)

	entries := []domain.PickedEntry{
		{EntryID: "e1", MainAuthor: "alice", Code: "VASP/6.3", PickedBy: "scan", BucketEntryCount: 4},
		{EntryID: "e2", MainAuthor: "bob", Code: "VASP/6.3"},
	}

	path, err := store.WritePickedEntries("VASP/6.3", entries)
	if err != nil {
		t.Fatalf("WritePickedEntries error: %v", err)
	}
	if filepath.Base(path) != "VASP_6.3.jsonl" {
		t.Fatalf("unexpected filename: %s", path)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("invalid JSONL line: %v", err)
		}
		lines = append(lines, line)
	}

	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["entry_id"] != "e1" || lines[0]["picked_by"] != "scan" {
		t.Fatalf("unexpected first line: %v", lines[0])
	}
	if lines[0]["bucket_entry_count"] != float64(4) {
		t.Fatalf("missing bucket count: %v", lines[0])
	}
	if _, hasNull := lines[0]["dataset_id"]; !hasNull {
		t.Fatalf("dataset_id must be serialized (as null): %v", lines[0])
	}
	if _, ok := lines[1]["picked_by"]; ok {
		t.Fatalf("bulk-style line must omit provenance: %v", lines[1])
	}
}

func TestWriteCodeMetadataAndManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewCSVStore(dir, nil)

	meta := domain.CodeRunMetadata{
		Timestamp:    "2026-08-29T00:00:00Z",
		Code:         "CODE1",
		QueryBy:      "program_name",
		Seed:         0,
		PageSize:     500,
		TotalEntries: 6,
	}
	if err := store.WriteCodeMetadata("CODE1", meta); err != nil {
		t.Fatalf("WriteCodeMetadata error: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "entries", "by_code", "CODE1_run_metadata.json"))
	if err != nil {
		t.Fatalf("read metadata: %v", err)
	}
	var decoded domain.CodeRunMetadata
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if decoded != meta {
		t.Fatalf("metadata round trip mismatch: %+v", decoded)
	}

	manifest := domain.RunManifest{
		Timestamp:           "2026-08-29T00:00:00Z",
		BaseURL:             "https://example.org/api/v1",
		TotalCodesProcessed: 1,
		TotalPickedEntries:  1,
	}
	if err := store.WriteRunManifest(manifest); err != nil {
		t.Fatalf("WriteRunManifest error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "run_metadata.json")); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
}
