package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"calview/internal/config"
	"calview/internal/ics"
	appLog "calview/internal/log"
	"calview/internal/refresh"
	"calview/internal/view"
	"calview/internal/web"
)

var version = "dev"

// rootOptions holds persistent flag values shared by every subcommand.
type rootOptions struct {
	configPath string
	envPath    string
	cacheDir   string
	logLevel   string

	conf *config.Config
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		appLog.Error("calview failed", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "calview",
		Short:         "Serve year, month, week and day calendar views built from ICS feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "/etc/calview/config.yaml", "Path to config file")
	root.PersistentFlags().StringVar(&opts.envPath, "env", ".env", "Optional .env file loaded before the config")
	root.PersistentFlags().StringVar(&opts.cacheDir, "cache-dir", "/var/lib/calview/ics-cache", "Directory for the ICS HTTP cache")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (overrides config if set)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newViewCmd(opts))
	root.AddCommand(newWeekdaysCmd(opts))
	return root
}

func (o *rootOptions) load() error {
	if err := config.LoadDotEnv(o.envPath); err != nil {
		return err
	}
	conf, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", o.configPath, err)
	}
	conf.ApplyEnv()
	if o.logLevel != "" {
		conf.LogLevel = o.logLevel
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		return err
	}
	appLog.SetLevel(level)

	o.conf = conf
	return nil
}

// pipeline wires the fetcher, snapshot store and refresher for the loaded
// config.
func (o *rootOptions) pipeline() (*refresh.Store, *refresh.Refresher, error) {
	store := refresh.NewStore()
	r, err := refresh.New(ics.NewFetcher(o.cacheDir), refresh.Sources(o.conf.ICS), store, o.conf.RefreshCron)
	if err != nil {
		return nil, nil, err
	}
	return store, r, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and refresh feeds on the configured schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := opts.conf
			if listen != "" {
				conf.Listen = listen
			}

			appLog.Info("effective config",
				"listen", conf.Listen,
				"timezone", conf.Timezone,
				"week_start", conf.WeekStart,
				"refresh", conf.RefreshCron,
				"ics_count", len(conf.ICS),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, refresher, err := opts.pipeline()
			if err != nil {
				return err
			}
			// A failed first refresh leaves an empty snapshot; the schedule retries.
			_ = refresher.RefreshNow(ctx)

			if err := refresher.Start(ctx); err != nil {
				return err
			}
			defer refresher.Stop()

			srv, err := web.NewServer(conf, store)
			if err != nil {
				return err
			}
			if err := srv.Serve(ctx); err != nil {
				return err
			}
			appLog.Info("calview exiting")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func newViewCmd(opts *rootOptions) *cobra.Command {
	var date, now string

	cmd := &cobra.Command{
		Use:       "view year|month|week|day",
		Short:     "Fetch feeds once and print a computed view as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"year", "month", "week", "day"},
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := view.ParseGranularity(args[0])
			if err != nil {
				return err
			}
			b, err := opts.conf.Builder()
			if err != nil {
				return err
			}
			loc := b.Location()

			nowAt := time.Now().In(loc)
			if now != "" {
				if nowAt, err = time.Parse(time.RFC3339, now); err != nil {
					return fmt.Errorf("--now must be RFC 3339: %w", err)
				}
			}
			reference := nowAt
			if date != "" {
				if reference, err = time.ParseInLocation(web.DateLayout, date, loc); err != nil {
					return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
				}
			}

			store, refresher, err := opts.pipeline()
			if err != nil {
				return err
			}
			if err := refresher.RefreshNow(cmd.Context()); err != nil && len(store.Events()) == 0 && len(opts.conf.ICS) > 0 {
				return err
			}

			resp, err := web.BuildView(b, g, store, opts.conf.BadgeKeywords, reference, nowAt)
			if err != nil {
				var rangeErr *view.EventRangeError
				if errors.As(err, &rangeErr) {
					return fmt.Errorf("event %d ends before it starts: %w", rangeErr.Index, err)
				}
				return err
			}
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Reference date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&now, "now", "", "Override the current time, RFC 3339")
	return cmd
}

func newWeekdaysCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "weekdays",
		Short: "Print weekday names in display order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := opts.conf.Builder()
			if err != nil {
				return err
			}
			return printJSON(cmd, b.WeekDayNames())
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
