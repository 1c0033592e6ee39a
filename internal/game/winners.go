package game

import (
	"fmt"
	"sort"

	"github.com/okihara/plo-game-sub001/internal/evaluator"
)

// beginShowdown moves the whole pot into side-pot layers, evaluates every
// live hand, and pays the winners. Called with a five-card board only.
func (s *State) beginShowdown() error {
	s.Street = Showdown
	s.Current = -1
	s.SidePots = SidePotsFor(s.Players[:])
	s.Pot = 0
	return s.payShowdown()
}

// completeByFolds ends the hand with a single live seat. No cards are shown
// and no evaluation runs; the winner's hand name stays empty.
func (s *State) completeByFolds(seat int) {
	amount := s.Pot
	for _, sp := range s.SidePots {
		amount += sp.Amount
	}
	s.Players[seat].Chips += amount
	s.Pot = 0
	s.SidePots = nil
	s.Current = -1
	s.Winners = []Winner{{Seat: seat, Amount: amount}}
	s.HandComplete = true
}

// payShowdown splits every side pot among its best eligible hands. Equal
// shares round down; the odd chip goes to the first tied winner clockwise
// from the button.
func (s *State) payShowdown() error {
	ranks := make(map[int]evaluator.HandRank)
	for _, seat := range s.LiveSeats() {
		rank, err := evaluator.EvaluateOmaha(s.Players[seat].HoleCards, s.Community)
		if err != nil {
			return fmt.Errorf("showdown: seat %d: %w", seat, err)
		}
		ranks[seat] = rank
	}

	totals := make(map[int]int)
	for _, pot := range s.SidePots {
		var best evaluator.HandRank
		for _, seat := range pot.Eligible {
			if ranks[seat] > best {
				best = ranks[seat]
			}
		}
		var tied []int
		for _, seat := range pot.Eligible {
			if ranks[seat] == best {
				tied = append(tied, seat)
			}
		}
		if len(tied) == 0 {
			return fmt.Errorf("showdown: pot of %d has no eligible winner", pot.Amount)
		}
		share := pot.Amount / len(tied)
		for _, seat := range tied {
			totals[seat] += share
		}
		if odd := pot.Amount % len(tied); odd > 0 {
			totals[s.firstClockwise(tied)] += odd
		}
	}

	seats := make([]int, 0, len(totals))
	for seat := range totals {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	for _, seat := range seats {
		if totals[seat] == 0 {
			continue
		}
		s.Players[seat].Chips += totals[seat]
		s.Winners = append(s.Winners, Winner{
			Seat:     seat,
			Amount:   totals[seat],
			HandName: ranks[seat].Name(),
		})
	}
	s.SidePots = nil
	s.HandComplete = true
	return nil
}

// firstClockwise returns the member of seats nearest the button going
// clockwise, starting at the seat after it.
func (s *State) firstClockwise(seats []int) int {
	for i := 1; i <= MaxSeats; i++ {
		seat := (s.Dealer + i) % MaxSeats
		for _, candidate := range seats {
			if candidate == seat {
				return seat
			}
		}
	}
	return seats[0]
}

// DetermineWinners resolves a finished betting hand into its completed
// form. It is mainly useful for driving a state that was advanced to
// showdown externally; Apply calls the same logic internally.
func (s *State) DetermineWinners() (*State, error) {
	if s.HandComplete {
		return s, nil
	}
	ns := s.clone()
	if live := ns.LiveSeats(); len(live) == 1 {
		ns.completeByFolds(live[0])
		return ns, nil
	}
	if len(ns.Community) != 5 {
		return nil, fmt.Errorf("determine winners: board has %d cards", len(ns.Community))
	}
	if ns.Street != Showdown {
		ns.Street = Showdown
		ns.Current = -1
		ns.SidePots = SidePotsFor(ns.Players[:])
		ns.Pot = 0
	}
	if err := ns.payShowdown(); err != nil {
		return nil, err
	}
	return ns, nil
}
