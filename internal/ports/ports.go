package ports

import (
	"context"

	"NomadScanner/internal/domain"
)

// EntrySource fetches one page of search results. An empty pageAfter starts
// from the beginning; an empty next cursor means the stream is exhausted.
type EntrySource interface {
	FetchPage(ctx context.Context, query domain.EntryQuery, pageAfter string) (entries []domain.Entry, next string, err error)
}

// SummaryStore owns the persisted summary tables and per-code outputs.
type SummaryStore interface {
	LoadTables() (domain.SummaryTables, error)
	SaveTables(tables domain.SummaryTables) error
	WritePickedEntries(code string, entries []domain.PickedEntry) (string, error)
	WriteCodeMetadata(code string, meta domain.CodeRunMetadata) error
	WriteRunManifest(manifest domain.RunManifest) error
}

// RunHistory records run lifecycles for later inspection.
type RunHistory interface {
	StartRun(ctx context.Context, runID, baseURL string, codes []string) error
	FinishRun(ctx context.Context, runID, status string, codesProcessed, pickedEntries int, runErr error) error
}

// Notifier publishes a human-readable summary after a run completes.
type Notifier interface {
	PublishRunSummary(ctx context.Context, summary string) error
}
