package cmd

import (
	"errors"
	"fmt"

	"commander_go/internal/domain"
	"commander_go/internal/service"

	"github.com/spf13/cobra"
)

// collectionFlags selects where a command reads the player's collection from
type collectionFlags struct {
	path  string
	saved bool
	save  bool
}

func (f *collectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.path, "collection", "", "collection text file, one card per line")
	cmd.Flags().BoolVar(&f.saved, "saved", false, "use the collection saved by a previous --save")
	cmd.Flags().BoolVar(&f.save, "save", false, "store the --collection file for later --saved runs")
}

func (f *collectionFlags) load() ([]domain.CollectionCard, error) {
	switch {
	case f.path != "":
		cards, err := service.LoadCollectionFile(f.path)
		if err != nil {
			return nil, err
		}
		if f.save {
			if err := boot.Storage.SaveCollection(cards); err != nil {
				return nil, fmt.Errorf("failed to save collection: %w", err)
			}
		}
		return cards, nil
	case f.saved:
		return boot.Storage.LoadCollection()
	default:
		return nil, errors.New("either --collection or --saved is required")
	}
}

func cardNames(cards []domain.CollectionCard) []string {
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.Name
	}
	return names
}
