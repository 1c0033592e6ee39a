package evaluator

import (
	"math/bits"

	"github.com/okihara/plo-game-sub001/internal/deck"
)

// Hand is a bitfield of cards: bit position = suit*13 + rank ordinal, where
// rank ordinal 0 is Two and 12 is Ace.
type Hand uint64

// CardBit returns the bitfield for a single card.
func CardBit(c deck.Card) Hand {
	return Hand(1) << (uint(c.Suit)*13 + uint(c.Rank-deck.Two))
}

// HandOf builds a bitfield from the given cards.
func HandOf(cards ...deck.Card) Hand {
	var h Hand
	for _, c := range cards {
		h |= CardBit(c)
	}
	return h
}

// CountCards returns the number of cards in the bitfield.
func (h Hand) CountCards() int {
	return bits.OnesCount64(uint64(h))
}

func (h Hand) suitMask(suit int) uint16 {
	return uint16((uint64(h) >> (suit * 13)) & 0x1FFF)
}

// straightHigh returns the top rank ordinal of the straight formed by
// exactly the ranks in mask, or -1 if the five ranks are not consecutive.
// The wheel (A-2-3-4-5) reports Five as its top rank.
func straightHigh(mask uint16) int {
	pattern := uint16(0x1F00) // A-K-Q-J-T
	for high := 12; high >= 5; high-- {
		if mask == pattern {
			return high
		}
		pattern >>= 1
	}
	if mask == 0x100F { // A-2-3-4-5
		return 3
	}
	return -1
}

// descendingRanks appends the rank ordinals present in mask, highest first.
func descendingRanks(mask uint16, out []uint8) []uint8 {
	for mask != 0 {
		top := uint8(bits.Len16(mask) - 1)
		out = append(out, top)
		mask &^= 1 << top
	}
	return out
}

// Evaluate5 ranks a hand of exactly five cards. Passing any other number of
// cards returns zero, which ranks below every real hand.
func Evaluate5(h Hand) HandRank {
	if h.CountCards() != 5 {
		return 0
	}

	var suitMasks [4]uint16
	var rankMask uint16
	flushSuit := -1
	for suit := 0; suit < 4; suit++ {
		m := h.suitMask(suit)
		suitMasks[suit] = m
		rankMask |= m
		if bits.OnesCount16(m) == 5 {
			flushSuit = suit
		}
	}

	// With five distinct ranks the rank mask itself is the straight pattern.
	high := -1
	if bits.OnesCount16(rankMask) == 5 {
		high = straightHigh(rankMask)
	}

	if flushSuit >= 0 && high >= 0 {
		return packRank(StraightFlush, uint8(high))
	}

	s0, s1, s2, s3 := suitMasks[0], suitMasks[1], suitMasks[2], suitMasks[3]
	quads := s0 & s1 & s2 & s3
	tripCandidates := (s0 & s1 & s2) | (s0 & s1 & s3) | (s0 & s2 & s3) | (s1 & s2 & s3)
	trips := tripCandidates &^ quads
	pairs := ((s0 & s1) | (s0 & s2) | (s0 & s3) | (s1 & s2) | (s1 & s3) | (s2 & s3)) &^ tripCandidates &^ quads

	if quads != 0 {
		quad := uint8(bits.Len16(quads) - 1)
		kicker := uint8(bits.Len16(rankMask&^quads) - 1)
		return packRank(FourOfAKind, quad, kicker)
	}

	if trips != 0 && pairs != 0 {
		trip := uint8(bits.Len16(trips) - 1)
		pair := uint8(bits.Len16(pairs) - 1)
		return packRank(FullHouse, trip, pair)
	}

	scratch := make([]uint8, 0, 5)

	if flushSuit >= 0 {
		ranks := descendingRanks(rankMask, scratch)
		return packRank(Flush, ranks...)
	}

	if high >= 0 {
		return packRank(Straight, uint8(high))
	}

	if trips != 0 {
		trip := uint8(bits.Len16(trips) - 1)
		kickers := descendingRanks(rankMask&^trips, scratch)
		return packRank(ThreeOfAKind, trip, kickers[0], kickers[1])
	}

	if bits.OnesCount16(pairs) == 2 {
		highPair := uint8(bits.Len16(pairs) - 1)
		lowPair := uint8(bits.Len16(pairs&^(1<<highPair)) - 1)
		kicker := uint8(bits.Len16(rankMask&^pairs) - 1)
		return packRank(TwoPair, highPair, lowPair, kicker)
	}

	if pairs != 0 {
		pair := uint8(bits.Len16(pairs) - 1)
		kickers := descendingRanks(rankMask&^pairs, scratch)
		return packRank(Pair, pair, kickers[0], kickers[1], kickers[2])
	}

	ranks := descendingRanks(rankMask, scratch)
	return packRank(HighCard, ranks...)
}

// EvaluateCards ranks exactly five cards given directly.
func EvaluateCards(cards ...deck.Card) HandRank {
	return Evaluate5(HandOf(cards...))
}
