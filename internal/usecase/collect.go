package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NomadScanner/internal/collector"
	"NomadScanner/internal/domain"
	"NomadScanner/internal/merge"
	"NomadScanner/internal/ports"
)

// CollectOptions carries the per-run configuration surface.
type CollectOptions struct {
	BaseURL              string
	Codes                []string
	QueryBy              string
	AuthorQuantity       string
	Seed                 int
	PageSize             int
	MaxAuthorsPerCode    int
	MaxDatasetsPerAuthor int
	IncludeFields        []string
	CollectAll           bool
}

// RunnerDeps wires the driven adapters into the collection run. History and
// Notifier are optional.
type RunnerDeps struct {
	Source   ports.EntrySource
	Store    ports.SummaryStore
	History  ports.RunHistory
	Notifier ports.Notifier
	Logger   *slog.Logger
}

// Runner executes one collection run: enumerate codes sequentially, merge the
// results with prior persisted tables, and rewrite the persisted state.
type Runner struct {
	collector *collector.Collector
	store     ports.SummaryStore
	history   ports.RunHistory
	notifier  ports.Notifier
	logger    *slog.Logger
}

// NewRunner constructs the orchestration component.
func NewRunner(deps RunnerDeps) *Runner {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		collector: collector.New(deps.Source, logger.With("component", "collector")),
		store:     deps.Store,
		history:   deps.History,
		notifier:  deps.Notifier,
		logger:    logger,
	}
}

// Run processes every requested code in order. Any failure aborts the
// remaining codes; previously persisted tables stay untouched in that case
// because the merged state is only written after all codes succeed.
func (r *Runner) Run(ctx context.Context, opts CollectOptions) error {
	if len(opts.Codes) == 0 {
		return fmt.Errorf("no codes to process")
	}

	runID := uuid.NewString()
	if r.history != nil {
		if err := r.history.StartRun(ctx, runID, opts.BaseURL, opts.Codes); err != nil {
			r.logger.Warn("record run start", "error", err)
		}
	}

	codesProcessed, totalPicked, err := r.run(ctx, opts)
	if err != nil {
		r.finishRun(ctx, runID, "failed", codesProcessed, totalPicked, err)
		return err
	}

	r.finishRun(ctx, runID, "completed", codesProcessed, totalPicked, nil)

	if r.notifier != nil {
		summary := fmt.Sprintf("NomadScanner run %s: %d codes processed, %d entries picked",
			runID, codesProcessed, totalPicked)
		if err := r.notifier.PublishRunSummary(ctx, summary); err != nil {
			r.logger.Warn("publish run summary", "error", err)
		}
	}

	return nil
}

func (r *Runner) run(ctx context.Context, opts CollectOptions) (codesProcessed, totalPicked int, err error) {
	prior, err := r.store.LoadTables()
	if err != nil {
		return 0, 0, fmt.Errorf("load persisted tables: %w", err)
	}

	var output merge.RunOutput
	processed := make(map[string]bool, len(opts.Codes))

	for _, code := range opts.Codes {
		r.logger.Info("processing code", "code", code)

		result, err := r.collector.CollectCode(ctx, collector.Options{
			Code:           code,
			QueryBy:        opts.QueryBy,
			AuthorQuantity: opts.AuthorQuantity,
			Seed:           opts.Seed,
			PageSize:       opts.PageSize,
			IncludeFields:  opts.IncludeFields,
			MaxAuthors:     opts.MaxAuthorsPerCode,
			MaxDatasets:    opts.MaxDatasetsPerAuthor,
			CollectAll:     opts.CollectAll,
		})
		if err != nil {
			return codesProcessed, totalPicked, fmt.Errorf("collect code %s: %w", code, err)
		}

		codesProcessed++
		totalPicked += len(result.Picked)
		processed[code] = true
		output.Overview = append(output.Overview, result.Overview)
		output.AuthorRows = append(output.AuthorRows, result.AuthorRows...)
		output.AuthorDatasetRows = append(output.AuthorDatasetRows, result.AuthorDatasetRows...)

		if len(result.Picked) == 0 {
			r.logger.Info("no picks for code", "code", code)
			continue
		}

		path, err := r.store.WritePickedEntries(code, result.Picked)
		if err != nil {
			return codesProcessed, totalPicked, fmt.Errorf("write entries for %s: %w", code, err)
		}
		r.logger.Info("wrote picked entries",
			"code", code, "count", len(result.Picked), "path", path)

		meta := domain.CodeRunMetadata{
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			BaseURL:       opts.BaseURL,
			Code:          code,
			QueryBy:       opts.QueryBy,
			CollectAll:    opts.CollectAll,
			Seed:          opts.Seed,
			PageSize:      opts.PageSize,
			TotalEntries:  result.TotalEntries,
			PickedEntries: len(result.Picked),
			NMainAuthors:  len(result.AuthorRows),
		}
		if err := r.store.WriteCodeMetadata(code, meta); err != nil {
			return codesProcessed, totalPicked, fmt.Errorf("write metadata for %s: %w", code, err)
		}
	}

	merged := merge.Tables(prior, output, processed)
	if err := r.store.SaveTables(merged); err != nil {
		return codesProcessed, totalPicked, fmt.Errorf("save merged tables: %w", err)
	}

	manifest := domain.RunManifest{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		BaseURL:   opts.BaseURL,
		Options: map[string]any{
			"codes":                   opts.Codes,
			"query_by":                opts.QueryBy,
			"author_quantity":         opts.AuthorQuantity,
			"seed":                    opts.Seed,
			"page_size":               opts.PageSize,
			"max_authors_per_code":    opts.MaxAuthorsPerCode,
			"max_datasets_per_author": opts.MaxDatasetsPerAuthor,
			"include_fields":          opts.IncludeFields,
			"collect_all":             opts.CollectAll,
		},
		TotalCodesProcessed: codesProcessed,
		TotalPickedEntries:  totalPicked,
	}
	if err := r.store.WriteRunManifest(manifest); err != nil {
		return codesProcessed, totalPicked, fmt.Errorf("write run manifest: %w", err)
	}

	return codesProcessed, totalPicked, nil
}

func (r *Runner) finishRun(ctx context.Context, runID, status string, codesProcessed, totalPicked int, runErr error) {
	if r.history == nil {
		return
	}
	if err := r.history.FinishRun(ctx, runID, status, codesProcessed, totalPicked, runErr); err != nil {
		r.logger.Warn("record run finish", "error", err)
	}
}
