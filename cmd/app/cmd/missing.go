package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"commander_go/internal/event"
	"commander_go/internal/service"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	missingCommander  string
	missingCollection collectionFlags
	missingImages     bool
)

var missingCmd = &cobra.Command{
	Use:   "missing",
	Short: "Price the recommended cards missing from a collection",
	Long: `Fetches the commander's recommendations, subtracts the collection and
resolves a price for every missing card. Ctrl+C stops the run after the
card being priced and prints the partial total.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		commander, err := eligibleCommander(missingCommander)
		if err != nil {
			return err
		}

		collection, err := missingCollection.load()
		if err != nil {
			return err
		}

		recs, err := boot.Recommendations.Recommendations(ctx, commander)
		if err != nil {
			return fmt.Errorf("recommendations unavailable: %w", err)
		}

		diff := service.Compare(recs, collection)
		need := append([]string(nil), diff.Need...)
		sort.Strings(need)
		fmt.Fprintf(out, "%s: you own %d of %d recommended cards, %d missing\n",
			commander, len(diff.Have), len(recs), len(need))

		if missingImages {
			go boot.PrefetchThumbnails(ctx, need)
		}

		if err := runBatch(ctx, out, need); err != nil {
			return err
		}

		m := boot.Metrics.Snapshot()
		fmt.Fprintf(out, "Cache hits: %s, remote requests: %s, avg latency: %s\n",
			humanize.Comma(int64(m.CacheHits)), humanize.Comma(int64(m.RemoteRequests)), m.AvgLatency)
		return nil
	},
}

func init() {
	missingCmd.Flags().StringVar(&missingCommander, "commander", "", "commander card name")
	missingCmd.MarkFlagRequired("commander")
	missingCollection.register(missingCmd)
	missingCmd.Flags().BoolVar(&missingImages, "images", false, "download thumbnails of the missing cards in the background")
}

func eligibleCommander(name string) (string, error) {
	if err := boot.LoadCardDB(); err != nil {
		return "", err
	}
	canonical, err := boot.Cards.ValidateCardName(name)
	if err != nil {
		return "", fmt.Errorf("unknown card %q: %w", name, err)
	}
	card, _ := boot.Cards.GetCardDetails(canonical)
	if !boot.Cards.IsEligibleCommander(card) {
		return "", fmt.Errorf("%s is not a legendary creature", canonical)
	}
	return canonical, nil
}

// runBatch prices cards on the batch coordinator, printing its events.
// Cancelling ctx stops the run at the next card boundary.
func runBatch(ctx context.Context, out io.Writer, cards []string) error {
	// The run outlives ctx so the card in flight can finish
	run, err := boot.Batches.Start(context.Background(), cards)
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-ctx.Done():
			run.Cancel()
		case <-run.Done():
		}
	}()

	var mixed bool
	err = run.Pump(context.Background(), boot.Config.PollInterval(), func(ev event.Event) {
		switch e := ev.(type) {
		case event.ProgressEvent:
			fmt.Fprintf(out, "[%d/%d] %s: ", e.Index, e.Total, e.Card)
		case event.QuoteEvent:
			if e.Quote == nil {
				fmt.Fprintln(out, "price unknown")
			} else {
				fmt.Fprintf(out, "%s (%s)\n", e.Quote, e.Quote.Source)
			}
		case event.RunningTotalEvent:
			mixed = e.Mixed
		case event.DoneEvent:
			fmt.Fprintf(out, "Total: %s %s\n", e.Currency, e.Total.StringFixed(2))
		case event.StoppedEvent:
			fmt.Fprintf(out, "Stopped after %d of %d cards. Partial total: %s %s\n",
				e.Completed, run.Len(), e.Currency, e.Total.StringFixed(2))
		}
	})
	if mixed {
		fmt.Fprintln(out, "Note: some prices could not be converted and are added in their own currency")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
