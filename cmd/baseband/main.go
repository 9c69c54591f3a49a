package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "baseband",
	Short: "Software baseband processor for a simulated SDR front end",
	Long: `baseband runs the receive and transmit strategies of a handheld SDR
against a simulated front end, publishing statistics, spectra and decoded
packets over HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "baseband.yaml", "YAML configuration file")
	rootCmd.AddCommand(newRunCmd(&runOptions{}))
	rootCmd.AddCommand(newDiscoverCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
