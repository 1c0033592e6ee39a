package evaluator

import "github.com/okihara/plo-game-sub001/internal/deck"

// Category enumerates hand categories from weakest to strongest.
type Category uint8

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandRank encodes a 5-card hand as category plus tie-break ranks, packed so
// that a straight integer comparison orders hands correctly. Higher is
// stronger. Layout: category in bits 20-23, then up to five tie-break ranks
// (0=Two .. 12=Ace) in descending significance, one nibble each.
type HandRank uint32

const rankShift = 20

func packRank(cat Category, tiebreaks ...uint8) HandRank {
	r := HandRank(cat) << rankShift
	shift := rankShift - 4
	for _, tb := range tiebreaks {
		r |= HandRank(tb) << shift
		shift -= 4
	}
	return r
}

// Category returns the hand category.
func (hr HandRank) Category() Category {
	return Category(hr >> rankShift)
}

// TieBreaks returns the packed tie-break ranks in descending significance.
// Categories that use fewer than five tie-breaks leave the trailing entries
// at the zero nibble, which decodes as Two.
func (hr HandRank) TieBreaks() [5]deck.Rank {
	var out [5]deck.Rank
	shift := rankShift - 4
	for i := 0; i < 5; i++ {
		out[i] = deck.Rank((hr>>shift)&0xF) + deck.Two
		shift -= 4
	}
	return out
}

// Name returns the display name of the hand, e.g. "Full House". An ace-high
// straight flush is reported as "Royal Flush".
func (hr HandRank) Name() string {
	cat := hr.Category()
	if cat == StraightFlush && hr.TieBreaks()[0] == deck.Ace {
		return "Royal Flush"
	}
	return cat.String()
}

// Beats reports whether hr is strictly stronger than other.
func (hr HandRank) Beats(other HandRank) bool {
	return hr > other
}
