package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"NomadScanner/internal/app"
	"NomadScanner/internal/collector"
	"NomadScanner/internal/config"
	"NomadScanner/internal/logging"
	"NomadScanner/internal/usecase"
)

var rootCmd = &cobra.Command{
	Use:   "nomadscanner",
	Short: "nomadscanner collects representative NOMAD entries per simulation code.",
}

type collectFlags struct {
	codes          []string
	queryBy        string
	authorQuantity string
	seed           int
	pageSize       int
	maxAuthors     int
	maxDatasets    int
	includeFields  []string
	collectAll     bool
	baseURL        string
	outdir         string
	verbose        bool
}

var flags collectFlags

var collectCmd = &cobra.Command{
	Use:   "collect --codes <code> [--codes <code> ...]",
	Short: "Scans entries for the given codes and merges summary tables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flags.queryBy != collector.QueryByProgram && flags.queryBy != collector.QueryByParser {
			return fmt.Errorf("unsupported --query-by value %q", flags.queryBy)
		}

		cfg := config.Load()
		applyFlagOverrides(&cfg, cmd)

		level := cfg.Logging.Level
		if flags.verbose {
			level = "debug"
		}
		logger := logging.New(level)

		application := app.New(cfg, logger)

		opts := usecase.CollectOptions{
			BaseURL:              cfg.API.BaseURL,
			Codes:                flags.codes,
			QueryBy:              flags.queryBy,
			AuthorQuantity:       cfg.Selection.AuthorQuantity,
			Seed:                 cfg.Selection.Seed,
			PageSize:             cfg.API.PageSize,
			MaxAuthorsPerCode:    cfg.Selection.MaxAuthorsPerCode,
			MaxDatasetsPerAuthor: cfg.Selection.MaxDatasetsPerAuthor,
			IncludeFields:        flags.includeFields,
			CollectAll:           flags.collectAll,
		}

		if err := application.Run(cmd.Context(), opts); err != nil {
			logger.Error("collection failed", "error", err)
			return err
		}
		return nil
	},
}

// applyFlagOverrides lets explicit flags win over file and env configuration.
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("base-url") {
		cfg.API.BaseURL = flags.baseURL
	}
	if cmd.Flags().Changed("outdir") {
		cfg.Output.Dir = flags.outdir
	}
	if cmd.Flags().Changed("seed") {
		cfg.Selection.Seed = flags.seed
	}
	if cmd.Flags().Changed("page-size") {
		cfg.API.PageSize = flags.pageSize
	}
	if cmd.Flags().Changed("author-quantity") {
		cfg.Selection.AuthorQuantity = flags.authorQuantity
	}
	if cmd.Flags().Changed("max-authors-per-code") {
		cfg.Selection.MaxAuthorsPerCode = flags.maxAuthors
	}
	if cmd.Flags().Changed("max-datasets-per-author") {
		cfg.Selection.MaxDatasetsPerAuthor = flags.maxDatasets
	}
}

func init() {
	collectCmd.Flags().StringArrayVar(&flags.codes, "codes", nil,
		"Simulation codes or parser names to process (required).")
	collectCmd.Flags().StringVar(&flags.queryBy, "query-by", collector.QueryByProgram,
		"Query by program_name or parser_name.")
	collectCmd.Flags().StringVar(&flags.authorQuantity, "author-quantity", "main_author",
		"Quantity to use for the author bucket key.")
	collectCmd.Flags().IntVar(&flags.seed, "seed", 0, "Selection seed.")
	collectCmd.Flags().IntVar(&flags.pageSize, "page-size", 500, "Entries per API page.")
	collectCmd.Flags().IntVar(&flags.maxAuthors, "max-authors-per-code", 25,
		"Keep only the top-N authors per code.")
	collectCmd.Flags().IntVar(&flags.maxDatasets, "max-datasets-per-author", 10,
		"Keep only the top-N datasets per author.")
	collectCmd.Flags().StringArrayVar(&flags.includeFields, "include-fields", nil,
		"Fields to request when fetching entries.")
	collectCmd.Flags().BoolVar(&flags.collectAll, "collect-all", false,
		"Collect all entries instead of one per (code, author) bucket.")
	collectCmd.Flags().StringVar(&flags.baseURL, "base-url", "", "NOMAD API base URL.")
	collectCmd.Flags().StringVar(&flags.outdir, "outdir", ".", "Output directory.")
	collectCmd.Flags().BoolVar(&flags.verbose, "verbose", false, "Enable debug logging.")
	_ = collectCmd.MarkFlagRequired("codes")

	rootCmd.AddCommand(collectCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
