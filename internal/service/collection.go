package service

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"commander_go/internal/domain"
)

// ParseCardLine reads "2 Sol Ring (C21)" as ("Sol Ring", 2). A line without a
// leading count has quantity 1. Blank lines are not ok.
func ParseCardLine(line string) (string, int, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", 0, false
	}

	qty := 1
	if first, rest, found := strings.Cut(line, " "); found {
		trimmed := strings.TrimSuffix(strings.ToLower(first), "x")
		if n, err := strconv.Atoi(trimmed); err == nil && n > 0 {
			qty = n
			line = strings.TrimSpace(rest)
		}
	}

	if i := strings.Index(line, "("); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		return "", 0, false
	}
	return line, qty, true
}

// ParseCollection parses one card per line, merging repeated names
func ParseCollection(text string) []domain.CollectionCard {
	var cards []domain.CollectionCard
	index := make(map[string]int)

	for _, line := range strings.Split(text, "\n") {
		name, qty, ok := ParseCardLine(line)
		if !ok {
			continue
		}
		key := strings.ToLower(name)
		if i, seen := index[key]; seen {
			cards[i].Quantity += qty
			continue
		}
		index[key] = len(cards)
		cards = append(cards, domain.CollectionCard{Name: name, Quantity: qty})
	}
	return cards
}

// LoadCollectionFile reads and parses a collection text file
func LoadCollectionFile(path string) ([]domain.CollectionCard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}
	return ParseCollection(string(data)), nil
}

// Diff splits recommendations by ownership
type Diff struct {
	Have []string `json:"have"`
	Need []string `json:"need"`
}

// Compare keeps the recommendation order in both lists. Names match
// case-insensitively.
func Compare(recommendations []string, collection []domain.CollectionCard) Diff {
	owned := make(map[string]struct{}, len(collection))
	for _, c := range collection {
		owned[strings.ToLower(c.Name)] = struct{}{}
	}

	var diff Diff
	for _, rec := range recommendations {
		if _, ok := owned[strings.ToLower(rec)]; ok {
			diff.Have = append(diff.Have, rec)
		} else {
			diff.Need = append(diff.Need, rec)
		}
	}
	return diff
}
