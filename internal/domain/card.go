package domain

import (
	"slices"
	"strings"
)

// CardRecord is the subset of an MTGJSON card printing the application reads
type CardRecord struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"`
	Types         []string `json:"types"`
	Supertypes    []string `json:"supertypes"`
	ColorIdentity []string `json:"colorIdentity"`
}

// IsLegendaryCreature uses the structured type fields, not the type line
func (c CardRecord) IsLegendaryCreature() bool {
	return slices.Contains(c.Supertypes, "Legendary") && slices.Contains(c.Types, "Creature")
}

// IsBasicLand reports whether the singleton rule exempts the card
func (c CardRecord) IsBasicLand() bool {
	return strings.Contains(c.Type, "Basic Land")
}

// ColorIdentityWithin reports whether every colour of c is in identity
func (c CardRecord) ColorIdentityWithin(identity []string) bool {
	for _, color := range c.ColorIdentity {
		if !slices.Contains(identity, color) {
			return false
		}
	}
	return true
}
