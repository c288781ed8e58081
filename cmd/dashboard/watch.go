package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/subcommands"
	"github.com/rs/zerolog/log"
	"github.com/trogers1052/portfolio-dashboard/internal/config"
	"github.com/trogers1052/portfolio-dashboard/internal/database"
	"github.com/trogers1052/portfolio-dashboard/internal/logging"
	"github.com/trogers1052/portfolio-dashboard/internal/metrics"
	"github.com/trogers1052/portfolio-dashboard/internal/models"
	"github.com/trogers1052/portfolio-dashboard/internal/portfolio"
	"github.com/trogers1052/portfolio-dashboard/internal/tui"
)

const defaultWatchLog = "dashboard.log"

type watchCmd struct {
	logFile string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "show the live portfolio dashboard in the terminal" }
func (*watchCmd) Usage() string {
	return `dashboard watch [-log <file>]

  Displays the configured user's holdings, recomputed on every live price
  update. Keys: s sell, a sell all, d delete, p price lookup, q quit.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.logFile, "log", "", "Log file (defaults to LOG_FILE, then "+defaultWatchLog+").")
}

func (c *watchCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := config.Load()

	// The terminal belongs to the dashboard, so logs always go to a file.
	switch {
	case c.logFile != "":
		cfg.Log.File = c.logFile
	case cfg.Log.File == "":
		cfg.Log.File = defaultWatchLog
	}
	closer, err := logging.Init("portfolio-dashboard", cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	m := metrics.New()
	recalc := portfolio.New(m)
	reloader := portfolio.NewReloader(recalc, db, cfg.Dashboard.Username)
	if err := reloader.Reload(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load holdings: %v\n", err)
		return subcommands.ExitFailure
	}

	backend := newBackendClient(cfg, m, nil)
	model := tui.New(ctx, recalc.Snapshot(), backend, backend, reloader)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	view := tui.NewProgramView(program)
	recalc.AddView(view)

	updates := make(chan models.PriceUpdateEvent, updateBuffer)
	go func() {
		if err := recalc.Run(ctx, updates); err != nil {
			log.Error().Err(err).Msg("Price update loop error")
		}
	}()

	f, err := startFeeds(ctx, cfg, m, recalc, updates, view.Status)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start price feeds: %v\n", err)
		return subcommands.ExitFailure
	}
	defer f.Close()

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "Dashboard error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
