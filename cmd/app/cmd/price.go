package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	priceSkipLocal bool
	priceThumbnail bool
)

var priceCmd = &cobra.Command{
	Use:   "price <card>...",
	Short: "Resolve the price of one or more cards",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		for _, card := range args {
			quote, ok := boot.Resolver.ResolveWith(ctx, card, !priceSkipLocal)
			if !ok {
				fmt.Fprintf(out, "%s: price unknown\n", card)
			} else {
				fmt.Fprintf(out, "%s: %s (%s)\n", card, quote, quote.Source)
			}

			if priceThumbnail {
				path, err := boot.Images.Thumbnail(ctx, card)
				if err != nil {
					fmt.Fprintf(out, "  thumbnail unavailable: %v\n", err)
					continue
				}
				fmt.Fprintf(out, "  thumbnail: %s\n", path)
			}
		}
		return nil
	},
}

func init() {
	priceCmd.Flags().BoolVar(&priceSkipLocal, "reference-only", false, "skip the local-currency source")
	priceCmd.Flags().BoolVar(&priceThumbnail, "thumbnail", false, "also download the card thumbnail")
}
