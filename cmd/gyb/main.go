// Package main is the entry point of the GYB conversation backend.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mr-gyb/1.9-Updated-Backend/internal/config"
	"github.com/mr-gyb/1.9-Updated-Backend/internal/logging"
)

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "gyb",
		Short:         "Conversation backend for the GYB agent platform",
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.GetViper()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			if err := config.Init(v, configPath); err != nil {
				return err
			}
			cfg := config.Load()
			return logging.Init(logging.Options{
				Level:      cfg.LogLevel,
				Format:     cfg.LogFormat,
				File:       cfg.LogFile,
				WithCaller: cfg.WithCaller,
			})
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to a config file")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text or json)")
	flags.String("log-file", "", "also write logs to this file, rotated")
	flags.Bool("with-caller", false, "add the caller to log lines")

	cmd.AddCommand(
		serveCmd(),
		chatCmd(),
	)
	return cmd
}
