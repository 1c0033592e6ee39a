package game

import (
	"fmt"

	"github.com/okihara/plo-game-sub001/internal/deck"
)

var multiwayPositions = [MaxSeats]Position{
	PositionButton, PositionSmallBlind, PositionBigBlind,
	PositionUTG, PositionHijack, PositionCutoff,
}

// StartHand begins a new hand from the given deck: it advances the button,
// posts blinds, deals four hole cards to every eligible seat, and selects
// the opening actor. The deck should already be shuffled; passing a stacked
// deck makes hands reproducible. Errors if fewer than two seats can play.
func (s *State) StartHand(d deck.Deck) (*State, error) {
	ns := s.clone()

	ns.Community = nil
	ns.Pot = 0
	ns.SidePots = nil
	ns.Street = Preflop
	ns.Current = -1
	ns.History = nil
	ns.Winners = nil
	ns.HandComplete = false
	for i := range ns.Players {
		p := &ns.Players[i]
		p.HoleCards = nil
		p.Position = NoPosition
		p.CurrentBet = 0
		p.TotalBet = 0
		p.Folded = false
		p.AllIn = false
		p.Acted = false
	}

	dealer := ns.nextEligible(s.Dealer)
	if dealer == -1 {
		return nil, fmt.Errorf("start hand: no eligible players")
	}
	ns.Dealer = dealer

	// Seats in play, clockwise starting at the button.
	order := []int{dealer}
	for seat := ns.nextEligible(dealer); seat != dealer; seat = ns.nextEligible(seat) {
		order = append(order, seat)
	}
	if len(order) < 2 {
		return nil, fmt.Errorf("start hand: need at least 2 players, have %d", len(order))
	}

	var sbSeat, bbSeat int
	if len(order) == 2 {
		// Heads-up: the button posts the small blind.
		sbSeat, bbSeat = order[0], order[1]
		ns.Players[sbSeat].Position = PositionButton
		ns.Players[bbSeat].Position = PositionBigBlind
	} else {
		sbSeat, bbSeat = order[1], order[2]
		for i, seat := range order {
			ns.Players[seat].Position = multiwayPositions[i]
		}
	}

	// A short blind puts the seat all in; it never counts as a raise.
	ns.postBlind(sbSeat, ns.SmallBlind)
	ns.postBlind(bbSeat, ns.BigBlind)

	// Cards go out clockwise from the seat after the button, button last.
	ns.Deck = d
	for i := 1; i <= len(order); i++ {
		seat := order[i%len(order)]
		ns.Players[seat].HoleCards = ns.Deck.Deal(4)
	}

	// The big blind is the bet to match even when posted short.
	ns.CurrentBet = ns.BigBlind
	ns.MinRaise = ns.BigBlind
	ns.LastFullRaiseBet = ns.BigBlind
	ns.LastRaiser = bbSeat

	// Heads-up the button opens; otherwise the seat after the big blind.
	// Scanning from the big blind covers both, and preserves the big
	// blind's option via the Acted flag.
	if next := ns.nextToAct(bbSeat); next != -1 {
		ns.Current = next
		return ns, nil
	}

	// Everyone is all in from the blinds: run the board out.
	if err := ns.advanceStreets(); err != nil {
		return nil, err
	}
	return ns, nil
}

func (s *State) postBlind(seat, blind int) {
	p := &s.Players[seat]
	pay := min(blind, p.Chips)
	p.Chips -= pay
	p.CurrentBet += pay
	p.TotalBet += pay
	s.Pot += pay
	if p.Chips == 0 {
		p.AllIn = true
	}
}
