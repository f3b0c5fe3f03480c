package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/almartin82/vtschooldata/internal/app"
	"github.com/almartin82/vtschooldata/internal/config"
	"github.com/almartin82/vtschooldata/internal/infrastructure"
	"github.com/almartin82/vtschooldata/internal/services"
	"github.com/almartin82/vtschooldata/pkg/contracts"
)

// cli carries the state shared by every subcommand. fetcher and logger are
// left nil in production and set by tests.
type cli struct {
	configPath string
	logLevel   string
	format     string

	out     io.Writer
	fetcher services.SourceFetcher
	logger  *slog.Logger
	app     *app.Application
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "vtschooldata",
		Short: "Vermont school enrollment and directory data",
		Long: `vtschooldata downloads the Vermont Agency of Education enrollment and
directory files, normalizes them into state, district and campus rows and
caches the results locally.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           contracts.GetFullVersionString(),
		PersistentPreRunE: c.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to config.yaml")
	flags.StringVar(&c.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&c.format, "format", "table", "output format: table, csv or json")

	root.AddCommand(
		c.yearsCmd(),
		c.fetchCmd(),
		c.bandsCmd(),
		c.directoryCmd(),
		c.cacheCmd(),
		c.serveCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	switch c.format {
	case "table", "csv", "json":
	default:
		return fmt.Errorf("unknown format %q: want table, csv or json", c.format)
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}

	if c.logger == nil {
		c.logger, err = infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
	}

	c.app, err = app.New(cfg, c.logger, c.fetcher)
	if err != nil {
		return err
	}

	cmd.SetContext(infrastructure.ContextWithTraceID(cmd.Context()))
	return nil
}

// close releases the application; safe to call more than once.
func (c *cli) close() {
	if c.app == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.app.Close(ctx); err != nil {
		c.logger.Warn("shutdown incomplete", slog.String("error", err.Error()))
	}
	c.app = nil
}
