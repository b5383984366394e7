package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"commander_go/internal/infra"
	"commander_go/internal/infra/ligamagic"
	"commander_go/internal/infra/scryfall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the local price caches",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show entry counts and staleness per source",
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := []struct {
			name string
			ttl  time.Duration
		}{
			{ligamagic.SourceName, boot.Settings.PriceTTL()},
			{scryfall.SourceName, boot.Settings.PriceTTL()},
			{infra.ExchangeRateSource, boot.Settings.ExchangeRateTTL()},
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SOURCE\tENTRIES\tPRICED\tNEGATIVE\tSTALE\tOLDEST\tTTL")
		for _, src := range sources {
			st := boot.Cache.Stats(src.name, src.ttl)
			oldest := "-"
			if !st.Oldest.IsZero() {
				oldest = humanize.Time(st.Oldest)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", src.name,
				humanize.Comma(int64(st.Entries)), humanize.Comma(int64(st.Positive)),
				humanize.Comma(int64(st.Negative)), humanize.Comma(int64(st.Stale)),
				oldest, src.ttl)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cache directory: %s\n", boot.Config.CacheDir())
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
}
