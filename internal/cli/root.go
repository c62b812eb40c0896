// Package cli implements the command-line interface for gancube.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SeamusWaldron/gancube_ble_library/internal/config"
)

const version = "0.1.0"

var (
	// Global flags
	cfgPath string
	dbPath  string
	verbose bool

	// configFile is the config path in effect after setup.
	configFile string

	cfg = config.Default()
	log = logrus.New()
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "gancube",
	Short: "GAN smart cube move logger",
	Long: `gancube connects to a GAN smart cube over Bluetooth, decrypts its
notifications and decodes the moves it reports.

Moves can be printed, watched live, exported as Prometheus metrics and
recorded to a local database for later review.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default: ~/.gancube/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database file path (default: ~/.gancube/gancube.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// setup loads the configuration and configures logging for every command.
func setup(cmd *cobra.Command, args []string) error {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath()
	}

	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = loaded
	configFile = path
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	configureLogger(log, cfg, verbose)
	log.SetOutput(cmd.ErrOrStderr())
	log.WithField("config", path).Debug("configuration loaded")
	return nil
}

func configureLogger(l *logrus.Logger, c *config.Config, verbose bool) {
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			DisableColors:    true,
			QuoteEmptyFields: true,
		})
	}

	l.SetLevel(c.Level())
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}
}
