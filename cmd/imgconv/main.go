package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "imgconv",
	Short: "convert images between formats",
	Example: `  $ imgconv convert --format png photo.jpg scan.tiff
  $ imgconv convert -f jpg -q 70 -o out/ *.png`,

	SilenceUsage: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "toml or yaml config file")
	rootCmd.AddCommand(convertCmd(), formatsCmd())
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
