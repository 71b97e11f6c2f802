// Package merge combines one run's summary rows with previously persisted
// tables. Rows for codes processed this run are replaced; everything else
// passes through untouched, so repeated merges of identical inputs are
// byte-stable.
package merge

import (
	"sort"

	"NomadScanner/internal/domain"
)

// RunOutput accumulates the fresh rows produced by one collection run.
type RunOutput struct {
	Overview          []domain.CodeOverviewRow
	AuthorRows        []domain.CodeAuthorRow
	AuthorDatasetRows []domain.CodeAuthorDatasetRow
}

// Tables merges prior persisted state with the current run. The global
// author/dataset table is never merged incrementally; it is recomputed from
// the union of carried-over and fresh detail rows every time.
func Tables(prior domain.SummaryTables, run RunOutput, processed map[string]bool) domain.SummaryTables {
	merged := domain.SummaryTables{
		CodeOverview:      mergeOverview(prior.CodeOverview, run.Overview),
		CodeAuthor:        mergeAuthorRows(prior.CodeAuthor, run.AuthorRows, processed),
		CodeAuthorDataset: mergeDatasetRows(prior.CodeAuthorDataset, run.AuthorDatasetRows, processed),
	}
	merged.GlobalAuthorDataset = recomputeGlobal(merged.CodeAuthorDataset)
	return merged
}

// mergeOverview keeps one row per code, letting this run's rows win, and
// sorts by code for a deterministic file order.
func mergeOverview(prior, fresh []domain.CodeOverviewRow) []domain.CodeOverviewRow {
	byCode := make(map[string]domain.CodeOverviewRow, len(prior)+len(fresh))
	for _, row := range prior {
		byCode[row.Code] = row
	}
	for _, row := range fresh {
		byCode[row.Code] = row
	}

	merged := make([]domain.CodeOverviewRow, 0, len(byCode))
	for _, row := range byCode {
		merged = append(merged, row)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Code < merged[j].Code })
	return merged
}

func mergeAuthorRows(prior, fresh []domain.CodeAuthorRow, processed map[string]bool) []domain.CodeAuthorRow {
	merged := make([]domain.CodeAuthorRow, 0, len(prior)+len(fresh))
	for _, row := range prior {
		if !processed[row.Code] {
			merged = append(merged, row)
		}
	}
	return append(merged, fresh...)
}

func mergeDatasetRows(prior, fresh []domain.CodeAuthorDatasetRow, processed map[string]bool) []domain.CodeAuthorDatasetRow {
	merged := make([]domain.CodeAuthorDatasetRow, 0, len(prior)+len(fresh))
	for _, row := range prior {
		if !processed[row.Code] {
			merged = append(merged, row)
		}
	}
	return append(merged, fresh...)
}

type authorDataset struct {
	author  string
	dataset string
}

// recomputeGlobal groups the merged detail rows by (author, dataset) and sums
// entry counts, sorted by the composite key.
func recomputeGlobal(detail []domain.CodeAuthorDatasetRow) []domain.GlobalAuthorDatasetRow {
	counts := map[authorDataset]int{}
	for _, row := range detail {
		counts[authorDataset{row.MainAuthor, row.DatasetID}] += row.NEntries
	}

	global := make([]domain.GlobalAuthorDatasetRow, 0, len(counts))
	for key, count := range counts {
		global = append(global, domain.GlobalAuthorDatasetRow{
			MainAuthor: key.author,
			DatasetID:  key.dataset,
			NEntries:   count,
		})
	}
	sort.Slice(global, func(i, j int) bool {
		if global[i].MainAuthor != global[j].MainAuthor {
			return global[i].MainAuthor < global[j].MainAuthor
		}
		return global[i].DatasetID < global[j].DatasetID
	})
	return global
}
