package deck

import "fmt"

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

var suitSymbols = [...]string{"♠", "♥", "♦", "♣"}
var suitLetters = [...]string{"s", "h", "d", "c"}

// String returns the display symbol of a suit
func (s Suit) String() string {
	if s < Spades || s > Clubs {
		return "?"
	}
	return suitSymbols[s]
}

// Letter returns the single-letter wire form of a suit ("s", "h", "d", "c")
func (s Suit) Letter() string {
	if s < Spades || s > Clubs {
		return "?"
	}
	return suitLetters[s]
}

// Rank represents a card rank, Two (2) through Ace (14)
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

const rankLetters = "23456789TJQKA"

// String returns the single-character form of a rank ("2".."9", "T", "J", "Q", "K", "A")
func (r Rank) String() string {
	if r < Two || r > Ace {
		return "?"
	}
	return string(rankLetters[r-Two])
}

// Card represents a playing card
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the display form of a card (e.g. "A♠")
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Code returns the two-character wire form of a card (e.g. "As", "Th")
func (c Card) Code() string {
	return c.Rank.String() + c.Suit.Letter()
}

// ParseCard parses the two-character wire form produced by Code.
func ParseCard(code string) (Card, error) {
	if len(code) != 2 {
		return Card{}, fmt.Errorf("card code must be 2 characters, got %q", code)
	}

	var rank Rank
	switch {
	case code[0] >= '2' && code[0] <= '9':
		rank = Rank(code[0] - '0')
	case code[0] == 'T':
		rank = Ten
	case code[0] == 'J':
		rank = Jack
	case code[0] == 'Q':
		rank = Queen
	case code[0] == 'K':
		rank = King
	case code[0] == 'A':
		rank = Ace
	default:
		return Card{}, fmt.Errorf("invalid rank character %q", code[0])
	}

	var suit Suit
	switch code[1] {
	case 's':
		suit = Spades
	case 'h':
		suit = Hearts
	case 'd':
		suit = Diamonds
	case 'c':
		suit = Clubs
	default:
		return Card{}, fmt.Errorf("invalid suit character %q", code[1])
	}

	return Card{Suit: suit, Rank: rank}, nil
}

// MarshalJSON encodes the card as its wire form.
func (c Card) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.Code() + `"`), nil
}

// UnmarshalJSON decodes a card from its wire form.
func (c *Card) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("card must be a JSON string, got %s", data)
	}
	parsed, err := ParseCard(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Codes returns the wire form of every card in order.
func Codes(cards []Card) []string {
	codes := make([]string, len(cards))
	for i, c := range cards {
		codes[i] = c.Code()
	}
	return codes
}

// ParseCards parses a list of wire-form codes.
func ParseCards(codes []string) ([]Card, error) {
	cards := make([]Card, len(codes))
	for i, code := range codes {
		c, err := ParseCard(code)
		if err != nil {
			return nil, err
		}
		cards[i] = c
	}
	return cards, nil
}
