package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"lineparse/internal/config"
	"lineparse/internal/parser"
	"lineparse/internal/parsers"
	"lineparse/internal/rules"
	"lineparse/internal/source"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the lineparse command tree.
func NewRootCmd() *cobra.Command {
	var debug bool

	rootCmd := &cobra.Command{
		Use:          "lineparse",
		Short:        "Line-oriented text parsing driven by pattern rules",
		Long:         "Parse text files line by line with regex, format-template or delimiter rules, and store the results in PostgreSQL and Neo4j.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := config.FromEnv().LogLevel
			if debug {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(countCmd())
	rootCmd.AddCommand(cpuinfoCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(similarCmd())
	rootCmd.AddCommand(statsCmd())

	return rootCmd
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <rules.yaml> [files...]",
		Short: "Parse files (or stdin) with a rule file and print the records as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := rules.Load(args[0], nil)
			if err != nil {
				return err
			}
			for _, rejected := range rs.Rejected() {
				log.Warn().Str("pattern", rejected.Expr).Msg("Pattern skipped")
			}

			var results []*parsers.Result
			if len(args) == 1 {
				records, err := rs.NewParser().ParseReader(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("parse stdin: %w", err)
				}
				results = append(results, &parsers.Result{FilePath: "-", Kind: rs.Name(), Records: records})
			}
			for _, path := range args[1:] {
				res, err := rs.ParseFile(path)
				if err != nil {
					return err
				}
				results = append(results, res)
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
}

func countCmd() *cobra.Command {
	var skipBlanks bool

	cmd := &cobra.Command{
		Use:   "count [files...]",
		Short: "Count lines per file (stdin when no file is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := parser.Options{Strip: skipBlanks, IgnoreBlanks: skipBlanks}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				n, err := parsers.NewLineCounter(opts).ParseReader(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("count stdin: %w", err)
				}
				fmt.Fprintln(out, n)
				return nil
			}

			counter := parsers.NewLineCounter(opts)
			total := 0
			for _, path := range args {
				counter.Reset()
				n, err := counter.Parse(source.File(path))
				if err != nil {
					return fmt.Errorf("count %s: %w", path, err)
				}
				total += n
				fmt.Fprintf(out, "%d\t%s\n", n, path)
			}
			if len(args) > 1 {
				fmt.Fprintf(out, "%d\ttotal\n", total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipBlanks, "skip-blanks", false, "Do not count blank or whitespace-only lines")
	return cmd
}

func cpuinfoCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "cpuinfo [file]",
		Short: "Parse /proc/cpuinfo (or a copy of it) into JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/proc/cpuinfo"
			if len(args) == 1 {
				path = args[0]
			}
			info, err := parsers.NewCPUInfoParser(!raw).Parse(source.File(path))
			if err != nil {
				return fmt.Errorf("parse cpuinfo: %w", err)
			}
			log.Debug().Int("processors", len(info)).Str("file", path).Msg("Parsed cpuinfo")
			return writeJSON(cmd.OutOrStdout(), info)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Read attributes from the raw match instead of keyword groups")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			log.Warn().Msg("Received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// initDependencies connects to PostgreSQL and Neo4j.
func initDependencies(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, neo4j.DriverWithContext, error) {
	pgPool, err := initPostgres(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	neo4jDriver, err := initGraph(ctx, cfg)
	if err != nil {
		pgPool.Close()
		return nil, nil, err
	}
	return pgPool, neo4jDriver, nil
}

func initPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}

	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")
	return pgPool, nil
}

func initGraph(ctx context.Context, cfg *config.Config) (neo4j.DriverWithContext, error) {
	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		return nil, fmt.Errorf("connect Neo4j: %w", err)
	}

	if err := neo4jDriver.VerifyConnectivity(ctx); err != nil {
		neo4jDriver.Close(ctx)
		return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Msg("Connected to Neo4j")
	return neo4jDriver, nil
}
