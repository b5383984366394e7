// Package carddb loads MTGJSON AllPrintings and answers card lookups.
package carddb

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"commander_go/internal/domain"
)

// Database is a lowercase-name index over every card printing. It loads
// once, on first use.
type Database struct {
	path  string
	once  sync.Once
	cards map[string]domain.CardRecord
	err   error
}

var _ domain.CardLookup = (*Database)(nil)

// New returns a database backed by the AllPrintings file at path
func New(path string) *Database {
	return &Database{path: path}
}

// NewFromCards builds an already-loaded database
func NewFromCards(cards []domain.CardRecord) *Database {
	db := &Database{cards: make(map[string]domain.CardRecord, len(cards))}
	db.once.Do(func() {})
	for _, c := range cards {
		db.add(c)
	}
	return db
}

// Load reads the file if it has not been read yet. A failure is permanent
// for this Database and wraps domain.ErrCardDatabaseUnavailable.
func (db *Database) Load() error {
	db.once.Do(func() {
		db.cards = make(map[string]domain.CardRecord)
		db.err = db.load()
		if db.err != nil {
			db.cards = map[string]domain.CardRecord{}
			slog.Error("Card database unavailable", slog.String("path", db.path), slog.Any("error", db.err))
		}
	})
	return db.err
}

// Len returns the number of unique card names
func (db *Database) Len() int {
	db.Load()
	return len(db.cards)
}

func (db *Database) load() error {
	f, err := os.Open(db.path)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCardDatabaseUnavailable, err)
	}
	defer f.Close()

	slog.Info("Loading card database", slog.String("path", db.path))
	processed, err := db.decode(bufio.NewReaderSize(f, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCardDatabaseUnavailable, err)
	}

	slog.Info("Card database loaded", slog.Int("printings", processed), slog.Int("cards", len(db.cards)))
	return nil
}

// decode streams {"data": {"<SET>": {"cards": [...]}, ...}} without holding
// the whole document in memory. Other keys are skipped.
func (db *Database) decode(r io.Reader) (int, error) {
	dec := json.NewDecoder(r)
	processed := 0

	if err := expectDelim(dec, '{'); err != nil {
		return 0, err
	}
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return processed, err
		}
		if key != "data" {
			if err := skipValue(dec); err != nil {
				return processed, err
			}
			continue
		}

		if err := expectDelim(dec, '{'); err != nil {
			return processed, err
		}
		for dec.More() {
			if _, err := readKey(dec); err != nil {
				return processed, err
			}
			var set struct {
				Cards []domain.CardRecord `json:"cards"`
			}
			if err := dec.Decode(&set); err != nil {
				return processed, err
			}
			for _, card := range set.Cards {
				if card.Name == "" {
					continue
				}
				db.add(card)
				processed++
				if processed%5000 == 0 {
					slog.Debug("Card database progress", slog.Int("printings", processed))
				}
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return processed, err
		}
	}
	return processed, expectDelim(dec, '}')
}

// add keeps the first printing of a name, unless a later one is a legendary
// creature
func (db *Database) add(card domain.CardRecord) {
	key := strings.ToLower(card.Name)
	if _, exists := db.cards[key]; !exists || card.IsLegendaryCreature() {
		db.cards[key] = card
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func skipValue(dec *json.Decoder) error {
	var discard json.RawMessage
	return dec.Decode(&discard)
}

// GetCardDetails looks a card up by name, case-insensitively
func (db *Database) GetCardDetails(name string) (domain.CardRecord, bool) {
	if err := db.Load(); err != nil {
		return domain.CardRecord{}, false
	}
	card, ok := db.cards[strings.ToLower(strings.TrimSpace(name))]
	return card, ok
}

// IsEligibleCommander reports whether the type line names a legendary creature
func (db *Database) IsEligibleCommander(card domain.CardRecord) bool {
	return strings.Contains(card.Type, "Legendary Creature")
}

// ValidateCardName returns the canonical spelling of name
func (db *Database) ValidateCardName(name string) (string, error) {
	if err := db.Load(); err != nil {
		return "", err
	}
	card, ok := db.GetCardDetails(name)
	if !ok {
		return "", &domain.NotFoundError{Source: "carddb", Key: name, Reason: domain.ReasonNotFound}
	}
	return card.Name, nil
}
