package carddb

import (
	"fmt"
	"slices"
	"sort"

	"commander_go/internal/domain"
)

// Severity of a deck validation finding
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// DeckSize is the required card count, commander included
const DeckSize = 100

// Issue is one deck validation finding
type Issue struct {
	Severity Severity `json:"severity"`
	Card     string   `json:"card,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return string(i.Severity) + ": " + i.Message
}

// ValidateDeck checks deck (commander excluded) against the commander rules:
// eligible commander, deck size, singleton except basic lands, colour identity.
// Problems with the commander itself stop further checks.
func ValidateDeck(db domain.CardLookup, commander string, deck []string) []Issue {
	var issues []Issue

	cmd, ok := db.GetCardDetails(commander)
	if !ok {
		return append(issues, Issue{SeverityError, commander, fmt.Sprintf("commander %q not found", commander)})
	}
	if !db.IsEligibleCommander(cmd) {
		return append(issues, Issue{SeverityError, commander, fmt.Sprintf("%q is not an eligible commander", commander)})
	}

	if total := len(deck) + 1; total != DeckSize {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("deck has %d cards, must have exactly %d", total, DeckSize),
		})
	}

	counts := make(map[string]int)
	var order []string
	for _, name := range deck {
		if counts[name] == 0 {
			order = append(order, name)
		}
		counts[name]++
	}

	identity := slices.Clone(cmd.ColorIdentity)
	sort.Strings(identity)

	for _, name := range order {
		card, ok := db.GetCardDetails(name)
		if !ok {
			issues = append(issues, Issue{SeverityWarning, name, fmt.Sprintf("%q not found in the card database", name)})
			continue
		}

		if n := counts[name]; n > 1 && !card.IsBasicLand() {
			issues = append(issues, Issue{SeverityError, name, fmt.Sprintf("%q appears %d times (singleton rule)", name, n)})
		}

		if !card.ColorIdentityWithin(cmd.ColorIdentity) {
			ci := slices.Clone(card.ColorIdentity)
			sort.Strings(ci)
			issues = append(issues, Issue{
				Severity: SeverityError,
				Card:     name,
				Message:  fmt.Sprintf("colour identity of %q %v is outside the commander's %v", name, ci, identity),
			})
		}
	}

	return issues
}

// IdentifyCommanders returns the sorted, unique canonical names of the
// eligible commanders among names
func IdentifyCommanders(db domain.CardLookup, names []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, name := range names {
		card, ok := db.GetCardDetails(name)
		if !ok || !db.IsEligibleCommander(card) {
			continue
		}
		if _, dup := seen[card.Name]; dup {
			continue
		}
		seen[card.Name] = struct{}{}
		out = append(out, card.Name)
	}
	sort.Strings(out)
	return out
}
