package carddb

import (
	"testing"

	"commander_go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB() *Database {
	return NewFromCards([]domain.CardRecord{
		{Name: "Atraxa, Praetors' Voice", Type: "Legendary Creature — Phyrexian Angel Horror",
			Supertypes: []string{"Legendary"}, Types: []string{"Creature"}, ColorIdentity: []string{"W", "U", "B", "G"}},
		{Name: "Edgar Markov", Type: "Legendary Creature — Vampire Knight",
			Supertypes: []string{"Legendary"}, Types: []string{"Creature"}, ColorIdentity: []string{"R", "W", "B"}},
		{Name: "Sol Ring", Type: "Artifact", Types: []string{"Artifact"}},
		{Name: "Island", Type: "Basic Land — Island", Types: []string{"Land"}, ColorIdentity: []string{"U"}},
		{Name: "Lightning Bolt", Type: "Instant", Types: []string{"Instant"}, ColorIdentity: []string{"R"}},
	})
}

func TestValidateDeck(t *testing.T) {
	db := testDB()

	t.Run("Unknown commander", func(t *testing.T) {
		issues := ValidateDeck(db, "Nobody", nil)
		require.Len(t, issues, 1)
		assert.Equal(t, SeverityError, issues[0].Severity)
	})

	t.Run("Ineligible commander", func(t *testing.T) {
		issues := ValidateDeck(db, "Sol Ring", nil)
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0].Message, "not an eligible commander")
	})

	t.Run("Legal deck", func(t *testing.T) {
		deck := []string{"Sol Ring"}
		for len(deck) < 99 {
			deck = append(deck, "Island")
		}
		assert.Empty(t, ValidateDeck(db, "Atraxa, Praetors' Voice", deck))
	})

	t.Run("Rule violations", func(t *testing.T) {
		deck := []string{"Sol Ring", "Sol Ring", "Island", "Island", "Lightning Bolt", "Mystery Card"}
		issues := ValidateDeck(db, "Atraxa, Praetors' Voice", deck)

		var cards []string
		for _, is := range issues {
			cards = append(cards, is.Card)
		}
		require.Len(t, issues, 4)
		assert.Equal(t, SeverityWarning, issues[0].Severity, "deck size is a warning")
		assert.Equal(t, []string{"", "Sol Ring", "Lightning Bolt", "Mystery Card"}, cards)
		assert.Equal(t, SeverityWarning, issues[3].Severity, "unknown cards are warnings")
	})
}

func TestIdentifyCommanders(t *testing.T) {
	db := testDB()
	got := IdentifyCommanders(db, []string{"Sol Ring", "edgar markov", "Atraxa, Praetors' Voice", "Edgar Markov", "Unknown"})
	assert.Equal(t, []string{"Atraxa, Praetors' Voice", "Edgar Markov"}, got)
}
