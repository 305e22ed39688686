package cli

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/local-events/internal/calendar"
	"github.com/pfrederiksen/local-events/internal/config"
	"github.com/pfrederiksen/local-events/internal/logger"
	"github.com/pfrederiksen/local-events/internal/metrics"
	"github.com/pfrederiksen/local-events/internal/pipeline"
	"github.com/pfrederiksen/local-events/internal/taxonomy"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitNoEvent = 2
)

var (
	flagConfig      string
	flagFormat      string
	flagVerbose     bool
	flagCategory    string
	flagLocation    string
	flagLimit       int
	flagDaysAhead   int
	flagSort        string
	flagICS         string
	flagProviders   []string
	flagMetricsAddr string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "local-events",
		Short: "Search local events across multiple providers",
		Long: `A CLI tool that aggregates local events from search engines, dedicated
event APIs, ticketing APIs and a scraped venue cache, then merges the
results into one deduplicated list.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config (optional)")
	cmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newSearchCmd(), newHealthCmd(), newVenuesCmd())
	return cmd
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one aggregated event search",
		RunE:  runSearch,
	}

	cmd.Flags().StringVar(&flagCategory, "category", "", "Event category, e.g. music, theatre, comedy (required)")
	cmd.Flags().StringVar(&flagLocation, "location", "", "Location, e.g. 'San Francisco, CA' (defaults from config)")
	cmd.Flags().IntVar(&flagLimit, "limit", 0, "Maximum events to return (defaults from config)")
	cmd.Flags().IntVar(&flagDaysAhead, "days-ahead", 0, "Only keep events within N days (0 disables)")
	cmd.Flags().StringVar(&flagSort, "sort", "date", "Sort order: date, title or source")
	cmd.Flags().StringVar(&flagICS, "ics", "", "Also write the results as an iCalendar file at this path")
	cmd.Flags().StringSliceVar(&flagProviders, "providers", nil, "Restrict to these providers, e.g. serpapi,exa (default: all enabled)")
	cmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")

	cmd.MarkFlagRequired("category")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}
	sortOrder, err := parseSortOrder(flagSort)
	if err != nil {
		return err
	}

	category := taxonomy.Normalize(flagCategory)
	if category == taxonomy.CategoryGeneral && !taxonomy.IsCanonical(strings.ToLower(strings.TrimSpace(flagCategory))) {
		fmt.Fprintf(os.Stderr, "Note: category %q is not recognized, searching broadly (known: %s)\n",
			flagCategory, strings.Join(taxonomy.Categories, ", "))
	}

	applyVerbosity()
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagLocation == "" {
		flagLocation = cfg.DefaultLocation
	}
	if flagDaysAhead == 0 {
		flagDaysAhead = cfg.DaysAhead
	}
	if flagMetricsAddr == "" {
		flagMetricsAddr = cfg.MetricsAddr
	}
	restrictProviders(cfg, flagProviders)

	m := metrics.New()
	serveMetrics(m, flagMetricsAddr)

	app, err := buildApp(cfg, m)
	if err != nil {
		return err
	}
	defer app.Close()

	resp := app.Pipeline.Search(cmd.Context(), pipeline.Request{
		Category:  category,
		Location:  flagLocation,
		Limit:     flagLimit,
		DaysAhead: flagDaysAhead,
	})

	sortEvents(resp.Events, sortOrder)
	if err := WriteSearch(os.Stdout, resp, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if flagICS != "" {
		ics := calendar.GenerateICS(resp.Events, time.Now())
		if err := os.WriteFile(flagICS, []byte(ics), 0644); err != nil {
			return fmt.Errorf("writing calendar: %w", err)
		}
	}

	if resp.Count == 0 {
		os.Exit(ExitNoEvent)
	}
	return nil
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe every configured provider end-to-end",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(flagFormat)
			if err != nil {
				return err
			}

			applyVerbosity()
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			app, err := buildApp(cfg, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			statuses := app.Pipeline.Health(cmd.Context())
			return WriteHealth(os.Stdout, statuses, format)
		},
	}
}

func newVenuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "venues",
		Short: "Manage the scraped venue snapshot",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show snapshot age and venue count",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseFormat(flagFormat)
			if err != nil {
				return err
			}

			applyVerbosity()
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			app, err := buildApp(cfg, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Snapshots == nil {
				return fmt.Errorf("venue snapshot is disabled in config")
			}
			return WriteVenueStatus(os.Stdout, app.Snapshots.Snapshot(), cfg.Venues, app.Snapshots.RefreshInProgress(), format)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Run the venue scraper synchronously and reload the snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyVerbosity()
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}

			app, err := buildApp(cfg, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			if app.Refresher == nil {
				return fmt.Errorf("no refresh_command configured")
			}
			if err := app.Refresher.Refresh(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Venue snapshot refreshed successfully.")
			return nil
		},
	})

	return cmd
}

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(s))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

func applyVerbosity() {
	if flagVerbose {
		logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
	}
}

// serveMetrics exposes the Prometheus endpoint for the lifetime of the
// process. Scrape failures after exit are the collector's problem, not ours.
func serveMetrics(m *metrics.Metrics, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics endpoint failed", logger.Fields{"addr": addr})
		}
	}()
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
