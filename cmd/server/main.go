// Command server runs the temporal world playback engine.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"chronoscope/server/internal/app"
)

var (
	configPath string
	addr       string
)

func main() {
	root := &cobra.Command{
		Use:   "chronoscope",
		Short: "Temporal world visualization and playback engine",
		Long: "chronoscope turns simulation snapshots and event logs into\n" +
			"time-indexed frames and relation graphs, served over HTTP and websockets.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the playback server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			color.New(color.FgCyan, color.Bold).Println("chronoscope")
			if configPath != "" {
				fmt.Printf("config: %s\n", configPath)
			}
			err := app.Run(ctx, app.Options{ConfigPath: configPath, Addr: addr})
			if err != nil {
				color.New(color.FgRed).Fprintf(os.Stderr, "server exited: %v\n", err)
			}
			return err
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
