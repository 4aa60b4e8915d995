// Command zaloga manages branch inventory and transfer orders between
// branches over a local SQLite document store.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/zaloga/internal/config"
	"github.com/erazemk/zaloga/internal/model"
)

// Version is set at build time.
var Version = "dev"

// Exit codes by error type.
const (
	exitOK = iota
	exitError
	exitValidation
	exitNotFound
	exitConflict
	exitInsufficientStock
	exitInvalidTransition
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	c := &cli{stdout: stdout, stderr: stderr}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if cerr := c.close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	var (
		validation   *model.ValidationError
		notFound     *model.NotFoundError
		conflict     *model.ConflictError
		insufficient *model.InsufficientStockError
		transition   *model.InvalidTransitionError
	)
	switch {
	case errors.As(err, &validation):
		return exitValidation
	case errors.As(err, &notFound):
		return exitNotFound
	case errors.As(err, &conflict):
		return exitConflict
	case errors.As(err, &insufficient):
		return exitInsufficientStock
	case errors.As(err, &transition):
		return exitInvalidTransition
	}
	return exitError
}

// cli carries global flags and the lazily opened app.
type cli struct {
	stdout, stderr io.Writer

	configPath   string
	dbPath       string
	logPath      string
	logLevel     string
	shipmentMode string
	natsURL      string
	metricsFile  string

	cfg      *config.Config
	app      *app
	closeLog func()
}

func (c *cli) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "zaloga",
		Short:         "Branch inventory and inter-branch transfers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&c.configPath, "config", "c", "", "YAML config file")
	f.StringVarP(&c.dbPath, "db", "d", "", "SQLite database path (default: zaloga.sqlite3)")
	f.StringVarP(&c.logPath, "log", "l", "", "log file path")
	f.StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&c.shipmentMode, "shipment-mode", "", "transfer shipment mode (atomic, per_line)")
	f.StringVar(&c.natsURL, "nats-url", "", "publish notifications to this NATS server")
	f.StringVar(&c.metricsFile, "metrics-textfile", "", "write Prometheus metrics to this file")

	cmd.AddCommand(
		c.initCmd(),
		c.branchCmd(),
		c.stockCmd(),
		c.orderCmd(),
		c.ledgerCmd(),
		c.notificationsCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "zaloga %s\n", Version)
			},
		},
	)
	return cmd
}

// setup loads the configuration, applies flag overrides and installs the logger.
func (c *cli) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	cfg.Merge(&config.Config{
		Database:      config.DatabaseConfig{Path: c.dbPath},
		Log:           config.LogConfig{Level: c.logLevel, File: c.logPath},
		Transfers:     config.TransfersConfig{ShipmentMode: c.shipmentMode},
		Notifications: config.NotificationsConfig{NATSURL: c.natsURL},
		Metrics:       config.MetricsConfig{Textfile: c.metricsFile},
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.LogLevel()
	// All logs go to stderr; stdout is reserved for command output.
	closeLog, err := setupLogger(level, cfg.Log.File, c.stderr, c.stderr)
	if err != nil {
		return err
	}
	c.closeLog = closeLog
	c.cfg = cfg
	return nil
}

// open returns the app, opening it on first use.
func (c *cli) open() (*app, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := openApp(c.cfg)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() error {
	var err error
	if c.app != nil {
		err = c.app.close()
		c.app = nil
	}
	if c.closeLog != nil {
		c.closeLog()
	}
	return err
}
