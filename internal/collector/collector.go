package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"NomadScanner/internal/domain"
	"NomadScanner/internal/ports"
	"NomadScanner/internal/selection"
)

const (
	// QueryByProgram matches entries by the simulation program name quantity.
	QueryByProgram = "program_name"
	// QueryByParser matches entries by the parser that produced them.
	QueryByParser = "parser_name"

	programNameQuantity = "results.method.simulation.program_name"
	datasetsQuantity    = "datasets.dataset_id"
)

// Options configures the collection pass for a single code.
type Options struct {
	Code           string
	QueryBy        string
	AuthorQuantity string
	Seed           int
	PageSize       int
	IncludeFields  []string
	MaxAuthors     int
	MaxDatasets    int
	CollectAll     bool
}

// Result carries everything one code contributes to the run.
type Result struct {
	Picked            []domain.PickedEntry
	AuthorRows        []domain.CodeAuthorRow
	AuthorDatasetRows []domain.CodeAuthorDatasetRow
	TotalEntries      int
	Overview          domain.CodeOverviewRow
}

// Collector streams every entry for a code and folds the stream into author
// counts, dataset counts, and one representative entry per author bucket.
type Collector struct {
	source ports.EntrySource
	logger *slog.Logger
}

// New wires the entry source.
func New(source ports.EntrySource, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{source: source, logger: logger}
}

// DefaultIncludeFields is the projection requested when the caller does not
// override it.
func DefaultIncludeFields(authorQuantity string) []string {
	return []string{"entry_id", authorQuantity, datasetsQuantity}
}

type authorStats struct {
	counts   map[string]int
	order    []string
	datasets map[string]*datasetStats
}

type datasetStats struct {
	counts map[string]int
	order  []string
}

// CollectCode enumerates all entries for one code. Records lacking an entry
// ID or a resolvable author are skipped; these are data-quality conditions,
// not failures. The final representative per author does not depend on the
// order entries arrive in.
func (c *Collector) CollectCode(ctx context.Context, opts Options) (Result, error) {
	query := domain.EntryQuery{
		Query:         buildQuery(opts),
		PageSize:      opts.PageSize,
		IncludeFields: opts.IncludeFields,
	}
	if len(query.IncludeFields) == 0 {
		query.IncludeFields = DefaultIncludeFields(opts.AuthorQuantity)
	}

	stats := authorStats{
		counts:   map[string]int{},
		datasets: map[string]*datasetStats{},
	}
	representatives := map[string]domain.PickedEntry{}
	var allEntries []domain.PickedEntry
	totalEntries := 0
	skipped := 0

	pageAfter := ""
	for {
		entries, next, err := c.source.FetchPage(ctx, query, pageAfter)
		if err != nil {
			return Result{}, fmt.Errorf("fetch entries for %s: %w", opts.Code, err)
		}

		for _, entry := range entries {
			entryID := entry.ID()
			if entryID == "" {
				skipped++
				continue
			}

			author := extractAuthor(entry, opts.AuthorQuantity)
			if author == "" {
				skipped++
				continue
			}

			if _, seen := stats.counts[author]; !seen {
				stats.order = append(stats.order, author)
			}
			stats.counts[author]++
			totalEntries++
			stats.countDatasets(author, entry.DatasetIDs())

			candidate := newPickedEntry(entryID, author, opts)
			if opts.CollectAll {
				allEntries = append(allEntries, candidate)
				continue
			}

			pool := []domain.PickedEntry{candidate}
			if current, ok := representatives[author]; ok {
				pool = append(pool, current)
			}
			if pick, ok := selection.StablePick(pool, opts.Seed); ok {
				representatives[author] = pick
			}
		}

		if next == "" {
			break
		}
		pageAfter = next
	}

	if skipped > 0 {
		c.logger.Debug("skipped entries with missing id or author",
			"code", opts.Code, "skipped", skipped)
	}

	topAuthors := stats.top(opts.MaxAuthors)

	var picked []domain.PickedEntry
	if opts.CollectAll {
		picked = allEntries
	} else {
		for _, author := range topAuthors {
			rep, ok := representatives[author]
			if !ok {
				continue
			}
			rep.PickedBy = "scan"
			rep.BucketEntryCount = stats.counts[author]
			picked = append(picked, rep)
		}
		picked = selection.Deduplicate(picked)
	}

	authorRows := make([]domain.CodeAuthorRow, 0, len(topAuthors))
	var datasetRows []domain.CodeAuthorDatasetRow
	for _, author := range topAuthors {
		authorRows = append(authorRows, domain.CodeAuthorRow{
			Code:       opts.Code,
			MainAuthor: author,
			NEntries:   stats.counts[author],
			NDatasets:  stats.distinctDatasets(author),
		})
		datasetRows = append(datasetRows, stats.topDatasets(opts.Code, author, opts.MaxDatasets)...)
	}

	return Result{
		Picked:            picked,
		AuthorRows:        authorRows,
		AuthorDatasetRows: datasetRows,
		TotalEntries:      totalEntries,
		Overview: domain.CodeOverviewRow{
			Code:         opts.Code,
			NEntries:     totalEntries,
			NMainAuthors: len(stats.counts),
			NDatasets:    stats.distinctDatasetsTotal(),
		},
	}, nil
}

func buildQuery(opts Options) map[string]any {
	if opts.QueryBy == QueryByParser {
		return map[string]any{"parser_name": opts.Code}
	}
	return map[string]any{programNameQuantity: opts.Code}
}

func newPickedEntry(entryID, author string, opts Options) domain.PickedEntry {
	entry := domain.PickedEntry{
		EntryID:    entryID,
		MainAuthor: author,
	}
	if opts.QueryBy == QueryByParser {
		entry.EntryPoint = opts.Code
	} else {
		entry.Code = opts.Code
	}
	return entry
}

// extractAuthor tries the configured quantity first and falls back to the
// nested metadata.main_author field. Each strategy either yields a normalized
// non-empty string or declines.
func extractAuthor(entry domain.Entry, quantity string) string {
	for _, raw := range []any{entry.Field(quantity), entry.NestedField("metadata", "main_author")} {
		if author := normalizeAuthor(raw); author != "" {
			return author
		}
	}
	return ""
}

// normalizeAuthor turns the raw quantity value into a display string. Author
// objects resolve via their name, then email; other objects serialize to a
// stable JSON form so equal authors always collapse into one bucket.
func normalizeAuthor(raw any) string {
	switch value := raw.(type) {
	case string:
		return strings.TrimSpace(value)
	case map[string]any:
		for _, key := range []string{"name", "email"} {
			if s, ok := value[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return ""
		}
		return string(encoded)
	default:
		return ""
	}
}

func (s *authorStats) countDatasets(author string, datasetIDs []string) {
	if len(datasetIDs) == 0 {
		return
	}
	ds := s.datasets[author]
	if ds == nil {
		ds = &datasetStats{counts: map[string]int{}}
		s.datasets[author] = ds
	}
	for _, id := range datasetIDs {
		if _, seen := ds.counts[id]; !seen {
			ds.order = append(ds.order, id)
		}
		ds.counts[id]++
	}
}

// top ranks authors by descending entry count; ties keep encounter order.
func (s *authorStats) top(limit int) []string {
	ranked := make([]string, len(s.order))
	copy(ranked, s.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return s.counts[ranked[i]] > s.counts[ranked[j]]
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func (s *authorStats) distinctDatasets(author string) int {
	if ds := s.datasets[author]; ds != nil {
		return len(ds.counts)
	}
	return 0
}

func (s *authorStats) distinctDatasetsTotal() int {
	seen := map[string]struct{}{}
	for _, ds := range s.datasets {
		for id := range ds.counts {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

func (s *authorStats) topDatasets(code, author string, limit int) []domain.CodeAuthorDatasetRow {
	ds := s.datasets[author]
	if ds == nil {
		return nil
	}

	ranked := make([]string, len(ds.order))
	copy(ranked, ds.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ds.counts[ranked[i]] > ds.counts[ranked[j]]
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	rows := make([]domain.CodeAuthorDatasetRow, 0, len(ranked))
	for _, id := range ranked {
		rows = append(rows, domain.CodeAuthorDatasetRow{
			Code:       code,
			MainAuthor: author,
			DatasetID:  id,
			NEntries:   ds.counts[id],
		})
	}
	return rows
}
