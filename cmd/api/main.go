package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/beanscene/api/internal/config"
	mongodoc "github.com/beanscene/api/internal/infrastructure/mongo"
	publicapp "github.com/beanscene/api/internal/public/application"
	"github.com/beanscene/api/internal/public/domain"
	"github.com/beanscene/api/internal/server"
)

var (
	logLevel string
	cfg      config.Config
	logger   *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "beanscene-api",
	Short:         "Campus cafe discovery and review API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		logger, err = config.NewLogger(cfg.LogLevel)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var typeaheadCmd = &cobra.Command{
	Use:   "typeahead",
	Short: "Search an institution's cafes interactively, one term per line on stdin",
	Long: `Discovers the cafes around an institution once, then reads search terms
from stdin. Terms are debounced like keystrokes and only the results for the
latest term are printed.`,
	RunE: runTypeahead,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	serveCmd.Flags().String("addr", "", "listen address, overrides HTTP_ADDR")
	typeaheadCmd.Flags().String("institution", "", "institution name or alias")
	typeaheadCmd.Flags().Duration("window", publicapp.SearchDebounce, "debounce window")

	rootCmd.AddCommand(serveCmd, typeaheadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := mongodoc.Connect(ctx, cfg.MongoURI, cfg.Timeout)
	if err != nil {
		return err
	}

	app, err := server.New(cfg, client, logger)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return err
	}
	return app.Run(ctx)
}

func runTypeahead(cmd *cobra.Command, _ []string) error {
	institution, _ := cmd.Flags().GetString("institution")
	window, _ := cmd.Flags().GetDuration("window")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := mongodoc.Connect(ctx, cfg.MongoURI, cfg.Timeout)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	table, err := publicapp.DefaultInstitutions()
	if err != nil {
		return err
	}
	if cfg.InstitutionsFile != "" {
		if table, err = publicapp.LoadInstitutionsFile(cfg.InstitutionsFile); err != nil {
			return err
		}
	}
	resolver := publicapp.NewCoordinateResolver(table)
	db := client.Database(cfg.MongoDatabase)
	discovery := publicapp.NewDiscoveryService(
		resolver,
		mongodoc.NewCafeRepository(db, cfg.Collections.Cafes, cfg.Collections.Reviews),
		server.NewPlaceSource(cfg.Places, logger),
		logger,
	)

	discoverCtx, cancel := context.WithTimeout(ctx, time.Minute)
	found, err := discovery.Discover(discoverCtx, domain.SessionContext{}, publicapp.DiscoverQuery{Institution: institution})
	cancel()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d cafes near %s\n", len(found.Cafes), found.Institution)
	if found.PlacesError != nil {
		fmt.Fprintf(out, "warning: %s\n", found.PlacesError.Message)
	}

	typeahead := publicapp.NewTypeahead(window,
		func(term string) publicapp.SearchResult {
			return publicapp.SearchCafes(term, found.Cafes, "")
		},
		func(result publicapp.SearchResult) {
			printResult(cmd, result)
		})
	defer typeahead.Close()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		typeahead.Input(strings.TrimRight(scanner.Text(), "\r"))
	}
	// Let the last term settle before closing.
	time.Sleep(window + 50*time.Millisecond)
	return scanner.Err()
}

func printResult(cmd *cobra.Command, result publicapp.SearchResult) {
	out := cmd.OutOrStdout()
	if result.CreateOption == nil {
		fmt.Fprintf(out, "%q: type at least %d characters\n", result.Term, publicapp.MinSearchTermLength)
		return
	}
	fmt.Fprintf(out, "%q: %d match(es)\n", result.Term, len(result.Cafes))
	for _, cafe := range result.Cafes {
		fmt.Fprintf(out, "  %-40s %4.1f (%d reviews) %s\n", cafe.Name, cafe.AverageRating, cafe.ReviewCount, cafe.Source)
	}
	fmt.Fprintf(out, "  + add %q as a new cafe\n", result.CreateOption.Name)
}
