package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"NomadScanner/internal/domain"
	"NomadScanner/internal/ports"
	"NomadScanner/internal/selection"
)

const (
	codeOverviewFile        = "code_overview.csv"
	codeAuthorFile          = "code_author_overview.csv"
	codeAuthorDatasetFile   = "code_author_dataset_overview.csv"
	globalAuthorDatasetFile = "global_author_dataset_overview.csv"
	runManifestFile         = "run_metadata.json"
)

// CSVStore persists summary tables under <dir>/data and per-code outputs
// under <dir>/entries/by_code. Whole files are read and rewritten per run;
// there is no atomic replace, so concurrent runs against one directory are
// not supported.
type CSVStore struct {
	dir    string
	logger *slog.Logger
}

var _ ports.SummaryStore = (*CSVStore)(nil)

// NewCSVStore roots the store at outdir.
func NewCSVStore(outdir string, logger *slog.Logger) *CSVStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVStore{dir: outdir, logger: logger}
}

func (s *CSVStore) dataPath(name string) string {
	return filepath.Join(s.dir, "data", name)
}

func (s *CSVStore) entriesDir() string {
	return filepath.Join(s.dir, "entries", "by_code")
}

// LoadTables reads all persisted tables; missing files yield empty tables.
func (s *CSVStore) LoadTables() (domain.SummaryTables, error) {
	var tables domain.SummaryTables

	overview, err := readCSV(s.dataPath(codeOverviewFile))
	if err != nil {
		return tables, fmt.Errorf("read %s: %w", codeOverviewFile, err)
	}
	for _, rec := range overview {
		tables.CodeOverview = append(tables.CodeOverview, domain.CodeOverviewRow{
			Code:         rec["code"],
			NEntries:     atoi(rec["n_entries"]),
			NMainAuthors: atoi(rec["n_main_authors"]),
			NDatasets:    atoi(rec["n_datasets"]),
		})
	}

	authors, err := readCSV(s.dataPath(codeAuthorFile))
	if err != nil {
		return tables, fmt.Errorf("read %s: %w", codeAuthorFile, err)
	}
	for _, rec := range authors {
		tables.CodeAuthor = append(tables.CodeAuthor, domain.CodeAuthorRow{
			Code:       rec["code"],
			MainAuthor: rec["main_author"],
			NEntries:   atoi(rec["n_entries"]),
			NDatasets:  atoi(rec["n_datasets"]),
		})
	}

	datasets, err := readCSV(s.dataPath(codeAuthorDatasetFile))
	if err != nil {
		return tables, fmt.Errorf("read %s: %w", codeAuthorDatasetFile, err)
	}
	for _, rec := range datasets {
		tables.CodeAuthorDataset = append(tables.CodeAuthorDataset, domain.CodeAuthorDatasetRow{
			Code:       rec["code"],
			MainAuthor: rec["main_author"],
			DatasetID:  rec["dataset_id"],
			NEntries:   atoi(rec["n_entries"]),
		})
	}

	global, err := readCSV(s.dataPath(globalAuthorDatasetFile))
	if err != nil {
		return tables, fmt.Errorf("read %s: %w", globalAuthorDatasetFile, err)
	}
	for _, rec := range global {
		tables.GlobalAuthorDataset = append(tables.GlobalAuthorDataset, domain.GlobalAuthorDatasetRow{
			MainAuthor: rec["main_author"],
			DatasetID:  rec["dataset_id"],
			NEntries:   atoi(rec["n_entries"]),
		})
	}

	return tables, nil
}

// SaveTables rewrites every summary table in full.
func (s *CSVStore) SaveTables(tables domain.SummaryTables) error {
	overview := make([][]string, 0, len(tables.CodeOverview))
	for _, row := range tables.CodeOverview {
		overview = append(overview, []string{
			row.Code, itoa(row.NEntries), itoa(row.NMainAuthors), itoa(row.NDatasets),
		})
	}
	if err := writeCSV(s.dataPath(codeOverviewFile),
		[]string{"code", "n_entries", "n_main_authors", "n_datasets"}, overview); err != nil {
		return fmt.Errorf("write %s: %w", codeOverviewFile, err)
	}

	authors := make([][]string, 0, len(tables.CodeAuthor))
	for _, row := range tables.CodeAuthor {
		authors = append(authors, []string{
			row.Code, row.MainAuthor, itoa(row.NEntries), itoa(row.NDatasets),
		})
	}
	if err := writeCSV(s.dataPath(codeAuthorFile),
		[]string{"code", "main_author", "n_entries", "n_datasets"}, authors); err != nil {
		return fmt.Errorf("write %s: %w", codeAuthorFile, err)
	}

	datasets := make([][]string, 0, len(tables.CodeAuthorDataset))
	for _, row := range tables.CodeAuthorDataset {
		datasets = append(datasets, []string{
			row.Code, row.MainAuthor, row.DatasetID, itoa(row.NEntries),
		})
	}
	if err := writeCSV(s.dataPath(codeAuthorDatasetFile),
		[]string{"code", "main_author", "dataset_id", "n_entries"}, datasets); err != nil {
		return fmt.Errorf("write %s: %w", codeAuthorDatasetFile, err)
	}

	global := make([][]string, 0, len(tables.GlobalAuthorDataset))
	for _, row := range tables.GlobalAuthorDataset {
		global = append(global, []string{
			row.MainAuthor, row.DatasetID, itoa(row.NEntries),
		})
	}
	if err := writeCSV(s.dataPath(globalAuthorDatasetFile),
		[]string{"main_author", "dataset_id", "n_entries"}, global); err != nil {
		return fmt.Errorf("write %s: %w", globalAuthorDatasetFile, err)
	}

	return nil
}

// WritePickedEntries writes one JSONL file per code and returns its path.
func (s *CSVStore) WritePickedEntries(code string, entries []domain.PickedEntry) (string, error) {
	if err := os.MkdirAll(s.entriesDir(), 0o755); err != nil {
		return "", fmt.Errorf("create entries dir: %w", err)
	}

	path := filepath.Join(s.entriesDir(), selection.NormalizeCodeName(code)+".jsonl")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	encoder := json.NewEncoder(file)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			_ = file.Close()
			return "", fmt.Errorf("encode entry %s: %w", entry.EntryID, err)
		}
	}

	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// WriteCodeMetadata stores the per-code run metadata JSON.
func (s *CSVStore) WriteCodeMetadata(code string, meta domain.CodeRunMetadata) error {
	if err := os.MkdirAll(s.entriesDir(), 0o755); err != nil {
		return fmt.Errorf("create entries dir: %w", err)
	}
	path := filepath.Join(s.entriesDir(), selection.NormalizeCodeName(code)+"_run_metadata.json")
	return writeJSON(path, meta)
}

// WriteRunManifest stores the whole-run manifest JSON.
func (s *CSVStore) WriteRunManifest(manifest domain.RunManifest) error {
	if err := os.MkdirAll(filepath.Join(s.dir, "data"), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return writeJSON(s.dataPath(runManifestFile), manifest)
}

// readCSV returns one map per data row keyed by the header line. A missing
// file is an empty table, not an error.
func readCSV(path string) ([]map[string]string, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		_ = file.Close()
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			_ = file.Close()
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = file.Close()
		return err
	}

	return file.Close()
}

func writeJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		_ = file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return file.Close()
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
