package service

import (
	"os"
	"path/filepath"
	"testing"

	"commander_go/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCardLine(t *testing.T) {
	tests := []struct {
		line string
		name string
		qty  int
		ok   bool
	}{
		{"Sol Ring", "Sol Ring", 1, true},
		{"  2 Sol Ring  ", "Sol Ring", 2, true},
		{"4x Island", "Island", 4, true},
		{"1 Arcane Signet (C21) 236", "Arcane Signet", 1, true},
		{"Command Tower (CMR)", "Command Tower", 1, true},
		{"1000 Island", "Island", 1000, true},
		{"0 Island", "0 Island", 1, true},
		{"", "", 0, false},
		{"   ", "", 0, false},
		{"(PROMO)", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, qty, ok := ParseCardLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.qty, qty)
		})
	}
}

func TestParseCollection(t *testing.T) {
	text := "1 Sol Ring\n\nIsland\n3 Island (UNF)\nsol ring\n"
	cards := ParseCollection(text)

	require.Len(t, cards, 2)
	assert.Equal(t, domain.CollectionCard{Name: "Sol Ring", Quantity: 2}, cards[0])
	assert.Equal(t, domain.CollectionCard{Name: "Island", Quantity: 4}, cards[1])
}

func TestLoadCollectionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.txt")
	require.NoError(t, os.WriteFile(path, []byte("Sol Ring\r\nArcane Signet\r\n"), 0644))

	cards, err := LoadCollectionFile(path)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "Arcane Signet", cards[1].Name)

	_, err = LoadCollectionFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	recs := []string{"Arcane Signet", "Command Tower", "Sol Ring", "Swords to Plowshares"}
	collection := []domain.CollectionCard{{Name: "sol ring"}, {Name: "Command Tower"}, {Name: "Island"}}

	diff := Compare(recs, collection)
	assert.Equal(t, []string{"Command Tower", "Sol Ring"}, diff.Have)
	assert.Equal(t, []string{"Arcane Signet", "Swords to Plowshares"}, diff.Need)
}
