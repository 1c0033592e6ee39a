package deck

import "math/rand"

// Size is the number of cards in a standard deck.
const Size = 52

// Deck holds 52 cards in deal order with a cursor. It is a value type so a
// game state embedding it can be copied without sharing the deal sequence.
type Deck struct {
	cards [Size]Card
	next  int
}

// New returns an unshuffled deck in canonical order.
func New() Deck {
	var d Deck
	i := 0
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards[i] = NewCard(suit, rank)
			i++
		}
	}
	return d
}

// NewShuffled returns a deck shuffled with the given source of randomness.
func NewShuffled(rng *rand.Rand) Deck {
	d := New()
	d.Shuffle(rng)
	return d
}

// Shuffle randomizes the undealt portion of the deck with a Fisher-Yates pass.
func (d *Deck) Shuffle(rng *rand.Rand) {
	for i := Size - 1; i > d.next; i-- {
		j := d.next + rng.Intn(i-d.next+1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal returns the next n cards and advances the cursor. It returns fewer
// than n cards only when the deck is exhausted.
func (d *Deck) Deal(n int) []Card {
	if n > Size-d.next {
		n = Size - d.next
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards
}

// Remaining returns the number of undealt cards.
func (d Deck) Remaining() int {
	return Size - d.next
}

// Stacked returns a deck that deals the given cards first, followed by the
// rest of the 52 in canonical order. Test helper for deterministic deals.
func Stacked(top ...Card) Deck {
	var d Deck
	seen := make(map[Card]bool, len(top))
	i := 0
	for _, c := range top {
		if seen[c] {
			continue
		}
		seen[c] = true
		d.cards[i] = c
		i++
	}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			c := NewCard(suit, rank)
			if !seen[c] {
				d.cards[i] = c
				i++
			}
		}
	}
	return d
}
