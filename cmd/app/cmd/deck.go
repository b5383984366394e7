package cmd

import (
	"fmt"

	"commander_go/internal/carddb"
	"commander_go/internal/service"

	"github.com/spf13/cobra"
)

var commandersCollection collectionFlags

var commandersCmd = &cobra.Command{
	Use:   "commanders",
	Short: "List the commanders available in a collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := boot.LoadCardDB(); err != nil {
			return err
		}
		collection, err := commandersCollection.load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		commanders := carddb.IdentifyCommanders(boot.Cards, cardNames(collection))
		if len(commanders) == 0 {
			fmt.Fprintln(out, "No eligible commanders found")
			return nil
		}
		for _, name := range commanders {
			fmt.Fprintln(out, name)
		}
		return nil
	},
}

var (
	validateCommander string
	validateDeck      string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a deck list against the commander rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := boot.LoadCardDB(); err != nil {
			return err
		}
		cards, err := service.LoadCollectionFile(validateDeck)
		if err != nil {
			return err
		}

		var deck []string
		for _, c := range cards {
			for i := 0; i < c.Quantity; i++ {
				deck = append(deck, c.Name)
			}
		}

		out := cmd.OutOrStdout()
		issues := carddb.ValidateDeck(boot.Cards, validateCommander, deck)
		errs := 0
		for _, issue := range issues {
			fmt.Fprintln(out, issue)
			if issue.Severity == carddb.SeverityError {
				errs++
			}
		}
		if errs > 0 {
			return fmt.Errorf("deck has %d rule violations", errs)
		}
		fmt.Fprintln(out, "Deck is valid")
		return nil
	},
}

func init() {
	commandersCollection.register(commandersCmd)

	validateCmd.Flags().StringVar(&validateCommander, "commander", "", "commander card name")
	validateCmd.Flags().StringVar(&validateDeck, "deck", "", "deck list file, one card per line (commander excluded)")
	validateCmd.MarkFlagRequired("commander")
	validateCmd.MarkFlagRequired("deck")
}
