package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"lineparse/internal/cache"
	"lineparse/internal/config"
	"lineparse/internal/filewalker"
	"lineparse/internal/graph"
	"lineparse/internal/parsers"
	"lineparse/internal/rules"
	"lineparse/internal/source"
	"lineparse/internal/store"
	"lineparse/internal/textutil"
	"lineparse/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func ingestCmd() *cobra.Command {
	var (
		rulePaths []string
		force     bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <directory>",
		Short: "Parse every matching file under a directory and store the results",
		Long: `Walks the directory and hands each file to the first rule set whose
file globs accept it (or to the built-in ini, text and lua parsers when no
--rules are given). Records and pattern profiles go to PostgreSQL; file to
pattern MATCHED edges go to Neo4j.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(args[0], rulePaths, force)
		},
	}

	cmd.Flags().StringSliceVar(&rulePaths, "rules", nil, "Rule files, tried in order (repeatable)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-store files whose content has not changed")
	return cmd
}

func similarCmd() *cobra.Command {
	var (
		rulePaths []string
		topK      int
	)

	cmd := &cobra.Command{
		Use:   "similar <file>",
		Short: "List stored files whose pattern profile is closest to a file's",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			cfg := config.Load()

			sets, err := loadRuleSets(rulePaths)
			if err != nil {
				return err
			}
			fp := filewalker.NewWalker(fileParsers(sets)...).ParserFor(args[0])
			if fp == nil {
				return fmt.Errorf("no parser accepts %s", args[0])
			}
			res, err := fp.ParseFile(args[0])
			if err != nil {
				return err
			}

			pgPool, err := initPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			defer pgPool.Close()

			matches, err := store.New(pgPool, cfg.ProfileDimensions).Similar(ctx, res.Hits(), res.FilePath, topK)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, m := range matches {
				fmt.Fprintf(out, "%.4f\t%s\t%s\t%d\n", m.Similarity, m.Kind, m.Path, m.Records)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&rulePaths, "rules", nil, "Rule files, tried in order (repeatable)")
	cmd.Flags().IntVar(&topK, "top", 5, "Number of files to list")
	return cmd
}

func statsCmd() *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "stats <ruleset>",
		Short: "Show per-pattern match counts recorded in the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := setupContext()
			defer cancel()

			cfg := config.Load()
			driver, err := initGraph(ctx, cfg)
			if err != nil {
				return err
			}
			defer driver.Close(ctx)

			q := graph.NewQuerier(driver)
			if pattern != "" {
				files, err := q.FilesMatching(ctx, args[0], pattern)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), files)
			}

			stats, err := q.PatternStats(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "List the files one pattern matched in")
	return cmd
}

// loadRuleSets compiles rule files in order.
func loadRuleSets(paths []string) ([]*rules.RuleSet, error) {
	var out []*rules.RuleSet
	for _, path := range paths {
		rs, err := rules.Load(path, nil)
		if err != nil {
			return nil, err
		}
		log.Info().
			Str("ruleset", rs.Name()).
			Str("kind", string(rs.Kind())).
			Int("rejected", len(rs.Rejected())).
			Msg("Loaded rules")
		out = append(out, rs)
	}
	return out, nil
}

// fileParsers adapts rule sets for the walker. No rule sets means the
// walker's built-in parsers.
func fileParsers(sets []*rules.RuleSet) []parsers.FileParser {
	out := make([]parsers.FileParser, len(sets))
	for i, rs := range sets {
		out[i] = rs
	}
	return out
}

// parsedFile is one parsed file with the hash of its content.
type parsedFile struct {
	result *parsers.Result
	hash   string
}

// runIngest handles the `ingest` command.
func runIngest(inputDir string, rulePaths []string, force bool) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()

	sets, err := loadRuleSets(rulePaths)
	if err != nil {
		return err
	}

	pgPool, neo4jDriver, err := initDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgPool.Close()
	defer neo4jDriver.Close(ctx)

	st := store.New(pgPool, cfg.ProfileDimensions)
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}
	hashes := cache.NewHashCache(st)
	if err := hashes.Preload(ctx); err != nil {
		return err
	}

	graphBuilder := graph.NewBuilder(neo4jDriver)
	if err := graphBuilder.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure graph schema: %w", err)
	}
	for _, rs := range sets {
		if err := graphBuilder.DeclarePatterns(ctx, rs.Name(), rs.Patterns()); err != nil {
			return err
		}
	}

	w := filewalker.NewWalker(fileParsers(sets)...)
	entries, err := w.Walk(inputDir)
	if err != nil {
		return fmt.Errorf("walk input directory: %w", err)
	}

	log.Info().Int("files", len(entries)).Int("workers", cfg.WorkerCount).Msg("Starting file ingestion")

	parsePool := worker.NewPool[filewalker.FileEntry, parsedFile](cfg.WorkerCount, parseEntry)
	tasks := parsePool.Execute(ctx, entries)

	stored, unchanged, records := 0, 0, 0
	for _, task := range tasks {
		if task.Err != nil {
			log.Error().Err(task.Err).Str("file", task.Input.Path).Msg("Parse failed")
			continue
		}
		res, hash := task.Result.result, task.Result.hash

		if !force && hashes.Unchanged(ctx, res.FilePath, hash) {
			unchanged++
			continue
		}
		if _, err := st.Save(ctx, res, hash); err != nil {
			log.Error().Err(err).Str("file", res.FilePath).Msg("Failed to store result")
			continue
		}
		if err := graphBuilder.LinkFile(ctx, task.Input.Parser.Name(), res); err != nil {
			log.Warn().Err(err).Str("file", res.FilePath).Msg("Failed to link file in graph")
		}
		hashes.Set(res.FilePath, hash)
		stored++
		records += len(res.Records)
	}

	log.Info().
		Int("files", len(entries)).
		Int("stored", stored).
		Int("unchanged", unchanged).
		Int("records", records).
		Msg("Ingestion complete")

	return ctx.Err()
}

// parseEntry parses the same bytes it hashes, so a file rewritten during
// ingestion cannot pair new records with an old hash.
func parseEntry(_ context.Context, entry filewalker.FileEntry) (parsedFile, error) {
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return parsedFile{}, fmt.Errorf("read %s: %w", entry.Path, err)
	}
	res, err := entry.Parser.ParseLines(entry.Path, source.Reader(bytes.NewReader(data)))
	if err != nil {
		return parsedFile{}, err
	}
	log.Debug().
		Str("file", textutil.Truncate(entry.Path, 80)).
		Str("parser", entry.Parser.Name()).
		Int("records", len(res.Records)).
		Msg("Parsed file")
	return parsedFile{result: res, hash: textutil.Hash(string(data))}, nil
}
