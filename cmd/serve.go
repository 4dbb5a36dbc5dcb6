package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/tally/pkg/engine"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tally report service",
	Long:  `The report service serves the HTTP API and report page and runs scheduled exports.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Silence usage on error
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	// Load configuration
	config, err := loadConfig(cfgFile, false)
	if err != nil {
		return err
	}

	// Setup logger. The --log-level flag wins over the config file.
	level, err := logrus.ParseLevel(config.Logging)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("log-level") {
		logger.SetLevel(level)
	}

	logger.Info("Configuration loaded")

	// Create and start the report service
	app, err := engine.NewService(logger, config)
	if err != nil {
		return err
	}

	if err := app.Start(); err != nil {
		_ = app.Stop()
		return err
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	return app.Stop()
}
