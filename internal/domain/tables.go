package domain

// CodeOverviewRow summarizes one simulation code across all of its entries.
type CodeOverviewRow struct {
	Code         string
	NEntries     int
	NMainAuthors int
	NDatasets    int
}

// CodeAuthorRow is one (code, main author) bucket kept after the top-N cut.
type CodeAuthorRow struct {
	Code       string
	MainAuthor string
	NEntries   int
	NDatasets  int
}

// CodeAuthorDatasetRow details entry counts per (code, author, dataset).
type CodeAuthorDatasetRow struct {
	Code       string
	MainAuthor string
	DatasetID  string
	NEntries   int
}

// GlobalAuthorDatasetRow aggregates dataset counts across every code.
type GlobalAuthorDatasetRow struct {
	MainAuthor string
	DatasetID  string
	NEntries   int
}

// SummaryTables is the full persisted state; it is read at run start and
// rewritten at run end. The merger is the only writer.
type SummaryTables struct {
	CodeOverview        []CodeOverviewRow
	CodeAuthor          []CodeAuthorRow
	CodeAuthorDataset   []CodeAuthorDatasetRow
	GlobalAuthorDataset []GlobalAuthorDatasetRow
}

// CodeRunMetadata is written next to each per-code JSONL output.
type CodeRunMetadata struct {
	Timestamp     string `json:"timestamp"`
	BaseURL       string `json:"base_url"`
	Code          string `json:"code"`
	QueryBy       string `json:"query_by"`
	CollectAll    bool   `json:"collect_all"`
	Seed          int    `json:"seed"`
	PageSize      int    `json:"page_size"`
	TotalEntries  int    `json:"total_entries"`
	PickedEntries int    `json:"picked_entries"`
	NMainAuthors  int    `json:"n_main_authors"`
}

// RunManifest captures one full invocation for auditing.
type RunManifest struct {
	Timestamp           string         `json:"timestamp"`
	BaseURL             string         `json:"base_url"`
	Options             map[string]any `json:"options"`
	TotalCodesProcessed int            `json:"total_codes_processed"`
	TotalPickedEntries  int            `json:"total_picked_entries"`
}
