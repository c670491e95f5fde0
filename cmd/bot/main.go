package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirebot/internal/app"
	"github.com/vovakirdan/wirebot/internal/config"
	"github.com/vovakirdan/wirebot/internal/log"
)

func main() {
	var (
		configPath string
		logLevel   string
		host       string
		port       string
		statusAddr string
	)

	root := &cobra.Command{
		Use:           "wirebot",
		Short:         "A persistent chat bot for pipe-protocol servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootLogger := log.New(logLevel)

			cfg, path, err := config.Load(bootLogger, configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(config.Config{
				Host:       host,
				Port:       port,
				LogLevel:   logLevel,
				StatusAddr: statusAddr,
			})

			logger := log.New(cfg.LogLevel)
			logger.Info().Str("config", path).Msg("starting wirebot")

			ctx, stop := signal.NotifyContext(cmd.Context(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("stopped")
			return nil
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	root.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.Flags().StringVar(&host, "host", "", "server host override")
	root.Flags().StringVar(&port, "port", "", "server port override")
	root.Flags().StringVar(&statusAddr, "status-addr", "", "status HTTP listen address")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "wirebot:", err)
		os.Exit(1)
	}
}
