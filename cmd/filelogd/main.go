package main

import (
	"context"
	"fmt"
	"os"

	"github.com/0xRadioAc7iv/go-filelog/internal/config"
	"github.com/0xRadioAc7iv/go-filelog/internal/daemon"
	"github.com/0xRadioAc7iv/go-filelog/internal/logging"
	"github.com/0xRadioAc7iv/go-filelog/internal/utils"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "filelogd",
		Short: "filelog server",
		Long:  "filelogd serves named append-only logs over a binary TCP protocol and REST.",
	}

	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the filelog server (TCP and HTTP)",
		Aliases: []string{"start", "run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			config.FromEnv(&cfg)

			// Flags given explicitly win over the file and the environment.
			flags := cmd.Flags()
			if flags.Changed("data-dir") {
				cfg.DataDir, _ = flags.GetString("data-dir")
			}
			if flags.Changed("host") {
				cfg.Host, _ = flags.GetString("host")
			}
			if flags.Changed("port") {
				cfg.Port, _ = flags.GetInt("port")
			}
			if flags.Changed("http") {
				cfg.HTTPAddr, _ = flags.GetString("http")
			}
			if flags.Changed("max-payload-bytes") {
				cfg.MaxPayloadBytes, _ = flags.GetInt("max-payload-bytes")
			}
			if flags.Changed("log-level") {
				cfg.LogLevel, _ = flags.GetString("log-level")
			}
			if flags.Changed("log-format") {
				cfg.LogFormat, _ = flags.GetString("log-format")
			}

			logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}, os.Stderr)
			if err != nil {
				return err
			}

			ctx, stop := utils.ContextForProcessInterruptOrKill(context.Background())
			defer stop()

			logger.Info("starting filelog",
				"data_dir", cfg.DataDir,
				"tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
				"http", cfg.HTTPAddr,
				"level", cfg.LogLevel,
			)

			if err := daemon.Run(ctx, daemon.Options{Config: cfg, Logger: logger}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}

	defaults := config.Default()
	serveCmd.Flags().String("config", "", "Path to a JSON configuration file")
	serveCmd.Flags().String("data-dir", defaults.DataDir, "Directory holding the logs and the catalog")
	serveCmd.Flags().String("host", defaults.Host, "TCP listen host")
	serveCmd.Flags().Int("port", defaults.Port, "TCP listen port (the next free port is used if taken)")
	serveCmd.Flags().String("http", defaults.HTTPAddr, "HTTP listen address (empty disables REST)")
	serveCmd.Flags().Int("max-payload-bytes", defaults.MaxPayloadBytes, "Largest accepted entry payload")
	serveCmd.Flags().String("log-level", defaults.LogLevel, "Log level: debug|info|warn|error")
	serveCmd.Flags().String("log-format", defaults.LogFormat, "Log format: text|json")
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
