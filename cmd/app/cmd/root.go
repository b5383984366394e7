// Package cmd provides the CLI commands for commander-go.
package cmd

import (
	"context"
	"os"

	"commander_go/internal/app"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool

	boot *app.Bootstrap
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "commander-go",
	Short: "Find and price the cards a commander deck is missing",
	Long: `commander-go compares a commander's recommended cards with your collection
and prices the missing ones, preferring local-currency marketplace prices and
falling back to converted reference prices.

Examples:
  commander-go price "Sol Ring"
  commander-go missing --commander "Atraxa, Praetors' Voice" --collection cards.txt
  commander-go settings --price-hours 24`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			os.Setenv("CDC_LOG_LEVEL", "debug")
		}
		boot = app.NewBootstrap(cfgFile)
		return boot.Initialize()
	},
}

// Execute runs the CLI
func Execute(ctx context.Context) error {
	defer func() {
		if boot != nil {
			boot.Close()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is configs/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(priceCmd)
	rootCmd.AddCommand(missingCmd)
	rootCmd.AddCommand(commandersCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(serveCmd)
}
