// Package main is the entry point for ccmeter. It runs the Bubble Tea
// dashboard by default; a few flags expose the engine without the TUI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mblanc/ccmeter/internal/app"
	"github.com/mblanc/ccmeter/internal/config"
	"github.com/mblanc/ccmeter/internal/engine"
	"github.com/mblanc/ccmeter/internal/logger"
	"github.com/mblanc/ccmeter/internal/services"
	"github.com/mblanc/ccmeter/internal/ui/tabs/dashboard"
	"github.com/mblanc/ccmeter/internal/ui/tabs/history"
	"github.com/mblanc/ccmeter/internal/ui/tabs/info"
	"github.com/mblanc/ccmeter/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-v", "--version":
			fmt.Println(version.Info())
			os.Exit(0)
		case "-h", "--help":
			printUsage()
			os.Exit(0)
		case "--once":
			exitOn(runOnce())
		case "--report":
			exitOn(runReport())
		case "--calibrate":
			exitOn(runCalibrate(os.Args[2:]))
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

// run starts the full TUI.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// The TUI owns the terminal, so send logs to a file next to the database.
	if closer, logErr := logger.Init(filepath.Join(filepath.Dir(cfg.DatabasePath), "ccmeter.log")); logErr == nil {
		defer closer.Close()
	}

	svcManager, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	model := app.NewModel(svcManager)
	model.SetTickInterval(cfg.TickInterval)

	state := model.GetState()
	tabs := []app.Tab{
		dashboard.New(state),
		history.New(state, svcManager),
		info.New(state, cfg, svcManager),
	}
	model.SetTabs(tabs)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
	)

	go func() {
		<-sigChan
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// runOnce performs a single refresh and prints the report to stdout.
func runOnce() error {
	mgr, cfg, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SourceTimeout)
	defer cancel()

	snapshot, err := mgr.Engine().Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	fmt.Print(engine.NewReport(snapshot).Render())
	return nil
}

// runReport refreshes and writes a report file, printing its path.
func runReport() error {
	mgr, cfg, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SourceTimeout)
	defer cancel()

	if _, err := mgr.Engine().Refresh(ctx); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	path, err := mgr.WriteReport()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// runCalibrate reads observed usage percentages from the command line and
// rescales the cap limits so the computed utilization matches them.
//
//	ccmeter --calibrate 50                observed binding-cap percentage
//	ccmeter --calibrate 50 --sonnet-pct 30
func runCalibrate(args []string) error {
	percents, err := parseCalibrateArgs(args)
	if err != nil {
		return err
	}

	mgr, _, err := newManager()
	if err != nil {
		return err
	}
	defer mgr.Close()

	cal, err := mgr.CalibrateFromPercent(percents)
	if err != nil {
		return err
	}

	fmt.Println("Calibration saved:")
	for _, cap := range cal.Caps {
		fmt.Printf("  %-12s $%.2f/week (reset hour %d)\n", cap.Name, cap.WeeklyLimitUSD, cap.ResetHour)
	}
	return nil
}

// parseCalibrateArgs maps --calibrate's arguments to cap-name percentages.
// The older --sonnet spelling is accepted alongside --sonnet-pct.
func parseCalibrateArgs(args []string) (map[string]float64, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("usage: ccmeter --calibrate PERCENT [--sonnet-pct PERCENT]")
	}

	pct, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid percentage %q: %w", args[0], err)
	}
	percents := map[string]float64{"all-models": pct}

	for i := 1; i < len(args); i++ {
		if (args[i] == "--sonnet-pct" || args[i] == "--sonnet") && i+1 < len(args) {
			sonnetPct, err := strconv.ParseFloat(args[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid percentage %q: %w", args[i+1], err)
			}
			percents["sonnet-only"] = sonnetPct
			i++
		}
	}
	return percents, nil
}

func newManager() (*services.Manager, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	mgr, err := services.NewManager(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return mgr, cfg, nil
}

func printUsage() {
	fmt.Println(`ccmeter - Claude usage and weekly quota monitor

Usage:
  ccmeter [flags]

Flags:
  -h, --help       Show this help message
  -v, --version    Show version information
  --once           Refresh once and print the KPI report to stdout
  --report         Refresh once and write a report file, printing its path
  --calibrate PCT  Rescale cap limits from an observed usage percentage
                   (add --sonnet-pct PCT for the sonnet-only cap)

Keyboard Shortcuts:
  1-3             Switch between tabs (Dashboard, History, Info)
  Tab/Shift+Tab   Navigate between tabs
  r               Refresh usage data
  w               Write a KPI report file
  ?               Toggle help
  q, Ctrl+C       Quit

Environment Variables:
  CCMETER_DATABASE_PATH     SQLite database path
  CCMETER_CALIBRATION_PATH  Calibration JSON file path
  CCMETER_CLAUDE_DIR        Claude session log directory
  CCMETER_OUTBOX_DIR        Report output directory
  CCMETER_REFRESH_INTERVAL  Re-aggregation cadence (default: 60s)
  CCMETER_LOG_LEVEL         Log verbosity: debug, info, warn, error

Configuration:
  The application looks for .env files in the current directory and
  under ~/.config/ccmeter/.`)
}
