package evaluator

import (
	"testing"

	"github.com/okihara/plo-game-sub001/internal/deck"
)

func omahaRank(t *testing.T, hole, board []string) HandRank {
	t.Helper()
	r, err := EvaluateOmaha(cards(t, hole...), cards(t, board...))
	if err != nil {
		t.Fatalf("EvaluateOmaha: %v", err)
	}
	return r
}

func TestOmahaUsesExactlyTwoHoleCards(t *testing.T) {
	t.Parallel()

	// One spade in the hole cannot combine with a monochrome board into a
	// flush: exactly two hole cards must play.
	r := omahaRank(t,
		[]string{"Js", "Jh", "4d", "4c"},
		[]string{"As", "Ks", "Qs", "8s", "3s"},
	)
	if r.Category() == Flush {
		t.Fatal("flush should be impossible with a single suited hole card")
	}
	if r.Category() != Pair {
		t.Errorf("category = %v, want Pair", r.Category())
	}
	if r.TieBreaks()[0] != deck.Jack {
		t.Errorf("pair rank = %v, want Jack", r.TieBreaks()[0])
	}
}

func TestOmahaBoardStraightDoesNotPlayAlone(t *testing.T) {
	t.Parallel()

	// The board is a nine-high straight but the hole cards cannot extend
	// it; exactly three board cards may be used.
	r := omahaRank(t,
		[]string{"Ah", "Ad", "Kc", "Qs"},
		[]string{"5h", "6d", "7s", "8c", "9h"},
	)
	if r.Category() == Straight {
		t.Fatal("straight should require two participating hole cards")
	}
	if r.Category() != Pair || r.TieBreaks()[0] != deck.Ace {
		t.Errorf("got %v %v, want pair of aces", r.Category(), r.TieBreaks()[0])
	}
}

func TestOmahaStraight(t *testing.T) {
	t.Parallel()

	r := omahaRank(t,
		[]string{"Th", "9h", "2c", "2d"},
		[]string{"8s", "7d", "6c", "Ac", "Kd"},
	)
	if r.Category() != Straight {
		t.Fatalf("category = %v, want Straight", r.Category())
	}
	if r.TieBreaks()[0] != deck.Ten {
		t.Errorf("straight high = %v, want Ten", r.TieBreaks()[0])
	}
}

func TestOmahaFlushNeedsTwoSuitedHoleCards(t *testing.T) {
	t.Parallel()

	r := omahaRank(t,
		[]string{"Ah", "Kh", "2c", "3d"},
		[]string{"Qh", "Jh", "9h", "2s", "4c"},
	)
	if r.Category() != Flush {
		t.Fatalf("category = %v, want Flush", r.Category())
	}
	if r.TieBreaks()[0] != deck.Ace {
		t.Errorf("flush high = %v, want Ace", r.TieBreaks()[0])
	}
}

func TestOmahaStraightFlush(t *testing.T) {
	t.Parallel()

	r := omahaRank(t,
		[]string{"Th", "9h", "4c", "4d"},
		[]string{"8h", "7h", "6h", "2s", "2c"},
	)
	if r.Category() != StraightFlush {
		t.Fatalf("category = %v, want StraightFlush", r.Category())
	}
	if r.TieBreaks()[0] != deck.Ten {
		t.Errorf("straight flush high = %v, want Ten", r.TieBreaks()[0])
	}
}

func TestOmahaPicksBestOfSixtyCombos(t *testing.T) {
	t.Parallel()

	// The hand makes both a weak flush and a full house; the full house is
	// not the strongest. Aces full of kings via AA + A K K beats the flush.
	r := omahaRank(t,
		[]string{"Ac", "Ad", "5c", "6c"},
		[]string{"As", "Kc", "Kd", "9c", "2c"},
	)
	if r.Category() != FullHouse {
		t.Fatalf("category = %v, want FullHouse", r.Category())
	}
	tb := r.TieBreaks()
	if tb[0] != deck.Ace || tb[1] != deck.King {
		t.Errorf("full house = %v over %v, want Aces over Kings", tb[0], tb[1])
	}
}

func TestOmahaRejectsWrongShapes(t *testing.T) {
	t.Parallel()

	goodHole := cards(t, "As", "Ks", "2d", "3d")
	goodBoard := cards(t, "Qh", "Jh", "9h", "2s", "4c")

	if _, err := EvaluateOmaha(goodHole[:3], goodBoard); err == nil {
		t.Error("3 hole cards should be rejected")
	}
	if _, err := EvaluateOmaha(goodHole, goodBoard[:4]); err == nil {
		t.Error("4-card board should be rejected")
	}
}

func TestOmahaDeterministic(t *testing.T) {
	t.Parallel()

	hole := []string{"Ah", "Kh", "2c", "3d"}
	board := []string{"Qh", "Jh", "9h", "2s", "4c"}
	a := omahaRank(t, hole, board)
	b := omahaRank(t, hole, board)
	if a != b {
		t.Errorf("same inputs ranked differently: %d vs %d", a, b)
	}
}
