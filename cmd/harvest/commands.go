package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mikequentel/tweetharvest/internal/config"
	"github.com/mikequentel/tweetharvest/internal/harvest"
	"github.com/mikequentel/tweetharvest/internal/model"
	"github.com/mikequentel/tweetharvest/internal/output"
	"github.com/mikequentel/tweetharvest/internal/source"
)

type app struct {
	// flags
	configPath string
	envFile    string
	backend    string
	logLevel   string
	outPath    string
	limit      int
	since      string
	lang       string

	cfg *config.Config
	log *slog.Logger

	newSource func(*config.Config, *slog.Logger) (source.Source, error)
	console   io.Writer
	logOut    io.Writer
}

func newApp() *app {
	return &app{
		newSource: func(cfg *config.Config, l *slog.Logger) (source.Source, error) {
			return source.New(cfg, source.WithLogger(l))
		},
		console: os.Stdout,
		logOut:  os.Stderr,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "harvest",
		Short:             "Fetch a user's timeline or a hashtag search from X/Twitter into a text file",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (default harvest.yaml if present)")
	pf.StringVar(&a.envFile, "env-file", config.DefaultEnvFile, "dotenv file with credentials")
	pf.StringVar(&a.backend, "backend", "", "client backend: v1, v2 or nitter")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVarP(&a.outPath, "output", "o", "", `output file, "-" for stdout (default depends on command)`)
	pf.IntVar(&a.limit, "limit", 0, "max items to fetch, 0 for no limit (default from config)")

	root.AddCommand(
		a.timelineCmd(),
		a.searchCmd(),
		a.locationsCmd(),
		a.reportCmd(),
	)
	return root
}

// setup loads config, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Backend = a.backend
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.outPath != "" {
		cfg.Output.Path = a.outPath
	}
	if cmd.Flags().Changed("limit") {
		cfg.Timeline.Limit = model.Limit(a.limit)
		cfg.Search.Limit = model.Limit(a.limit)
	}
	if a.lang != "" {
		cfg.Search.Lang = a.lang
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	lvl, _ := cfg.Log.SlogLevel()
	a.log = slog.New(slog.NewTextHandler(a.logOut, &slog.HandlerOptions{Level: lvl}))
	a.cfg = cfg
	return nil
}

func (a *app) openSource() (source.Source, error) {
	src, err := a.newSource(a.cfg, a.log)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", a.cfg.Backend, err)
	}
	return src, nil
}

func (a *app) query(terms string) (model.Query, error) {
	q := model.Query{Terms: terms, Lang: a.cfg.Search.Lang}
	if a.since != "" {
		since, err := parseSince(a.since)
		if err != nil {
			return q, err
		}
		q.Since = since
	}
	return q, nil
}

func parseSince(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--since %q: want YYYY-MM-DD", s)
	}
	return t, nil
}

func (a *app) outputPath(kind, subject string) string {
	if a.cfg.Output.Path != "" {
		return a.cfg.Output.Path
	}
	return output.DefaultPath(kind, subject)
}

func (a *app) timelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <handle>",
		Short: "Write a user's timeline as (full text, created at) lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := args[0]
			src, err := a.openSource()
			if err != nil {
				return err
			}
			msgs, err := harvest.Timeline(cmd.Context(), src, handle, a.cfg.Timeline.Limit)
			if err != nil {
				return err
			}
			return writeLines(a, output.KindTimeline, handle, msgs)
		},
	}
}

func searchFlags(a *app, cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.since, "since", "", "earliest date, YYYY-MM-DD")
	cmd.Flags().StringVar(&a.lang, "lang", "", "language filter (default from config)")
}

func (a *app) searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Write the texts of a search, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.query(args[0])
			if err != nil {
				return err
			}
			src, err := a.openSource()
			if err != nil {
				return err
			}
			msgs, err := harvest.Search(cmd.Context(), src, q, a.cfg.Search.Limit)
			if err != nil {
				return err
			}
			return writeLines(a, output.KindSearch, q.Terms, msgs)
		},
	}
	searchFlags(a, cmd)
	return cmd
}

func (a *app) locationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations <query>",
		Short: "Write the handle and self-declared location of each search result's author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.query(args[0])
			if err != nil {
				return err
			}
			src, err := a.openSource()
			if err != nil {
				return err
			}
			locs, err := harvest.Locations(cmd.Context(), src, q, a.cfg.Search.Limit)
			if err != nil {
				return err
			}
			return writeLines(a, output.KindLocations, q.Terms, locs)
		},
	}
	searchFlags(a, cmd)
	return cmd
}

func (a *app) reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <query>",
		Short: "Print search texts and author locations, then write both as a numbered report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.query(args[0])
			if err != nil {
				return err
			}
			src, err := a.openSource()
			if err != nil {
				return err
			}
			// Two separate queries; the platform may answer them differently.
			msgs, err := harvest.Search(cmd.Context(), src, q, a.cfg.Search.Limit)
			if err != nil {
				return err
			}
			locs, err := harvest.Locations(cmd.Context(), src, q, a.cfg.Search.Limit)
			if err != nil {
				return err
			}

			if err := output.WriteLines(a.console, msgs); err != nil {
				return err
			}
			if err := output.WriteLines(a.console, locs); err != nil {
				return err
			}

			w, err := output.Create(a.outputPath(output.KindReport, q.Terms))
			if err != nil {
				return err
			}
			if err := output.WriteReport(w, msgs, locs); err != nil {
				w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}
			a.log.Info("wrote report", "query", q.Terms, "tweets", len(msgs), "locations", len(locs), "path", w.Path)
			return nil
		},
	}
	searchFlags(a, cmd)
	return cmd
}

// writeLines writes records to the configured or conventional path.
func writeLines[T fmt.Stringer](a *app, kind, subject string, records []T) error {
	w, err := output.Create(a.outputPath(kind, subject))
	if err != nil {
		return err
	}
	if err := output.WriteLines(w, records); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	a.log.Info("wrote records", "kind", kind, "subject", subject, "count", len(records), "path", w.Path)
	return nil
}
