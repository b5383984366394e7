package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	settingsPriceHours  int
	settingsRateMinutes int
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the cache lifetimes",
	Long: `Without flags, prints the current cache lifetimes. Changes apply to
existing cache entries immediately.

  --price-hours   price cache lifetime, 1-168 hours
  --rate-minutes  exchange rate cache lifetime, 1-1440 minutes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := boot.Settings
		if cmd.Flags().Changed("price-hours") || cmd.Flags().Changed("rate-minutes") {
			hours, mins := s.PriceCacheHours(), s.ExchangeRateCacheMinutes()
			if cmd.Flags().Changed("price-hours") {
				hours = settingsPriceHours
			}
			if cmd.Flags().Changed("rate-minutes") {
				mins = settingsRateMinutes
			}
			if err := s.Update(hours, mins); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Price cache:         %d hours\n", s.PriceCacheHours())
		fmt.Fprintf(out, "Exchange rate cache: %d minutes\n", s.ExchangeRateCacheMinutes())
		return nil
	},
}

func init() {
	settingsCmd.Flags().IntVar(&settingsPriceHours, "price-hours", 0, "price cache lifetime in hours")
	settingsCmd.Flags().IntVar(&settingsRateMinutes, "rate-minutes", 0, "exchange rate cache lifetime in minutes")
}
