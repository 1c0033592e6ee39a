package game

import "fmt"

// ValidActions computes the legal actions for a seat with their pushed-chip
// bounds. It returns nil unless the seat is exactly the one to act. Amounts
// follow pot-limit rules:
//
//	toCall = currentBet - player.currentBet
//	bet:   min(bigBlind, chips) .. min(pot, chips)
//	raise: currentBet + minRaise - player.currentBet .. min(toCall + (pot + toCall), chips)
//
// A raise is only offered to players who have not acted since the last full
// raise, so a short all in never reopens the betting.
func (s *State) ValidActions(seat int) []ValidAction {
	if s.HandComplete || seat < 0 || seat >= MaxSeats || seat != s.Current {
		return nil
	}
	p := &s.Players[seat]
	if !p.canAct() {
		return nil
	}

	toCall := s.CurrentBet - p.CurrentBet
	actions := []ValidAction{{Action: Fold}}

	var potLimitMax int
	if toCall <= 0 {
		actions = append(actions, ValidAction{Action: Check})
		potLimitMax = min(s.Pot, p.Chips)
		if potLimitMax > 0 {
			actions = append(actions, ValidAction{
				Action:    Bet,
				MinAmount: min(s.BigBlind, p.Chips),
				MaxAmount: potLimitMax,
			})
		}
	} else {
		callAmount := min(toCall, p.Chips)
		actions = append(actions, ValidAction{Action: Call, MinAmount: callAmount, MaxAmount: callAmount})
		potLimitMax = min(toCall+(s.Pot+toCall), p.Chips)
		if !p.Acted {
			minPush := s.CurrentBet + s.MinRaise - p.CurrentBet
			if minPush <= potLimitMax {
				actions = append(actions, ValidAction{Action: Raise, MinAmount: minPush, MaxAmount: potLimitMax})
			}
		}
	}

	if p.Chips > 0 && p.Chips <= potLimitMax {
		// A player the betting was never reopened for may shove only as a
		// short call, never as a raise.
		if toCall <= 0 || !p.Acted || p.Chips <= toCall {
			actions = append(actions, ValidAction{Action: AllIn, MinAmount: p.Chips, MaxAmount: p.Chips})
		}
	}
	return actions
}

// Apply executes one action for the seat to act and returns the resulting
// state. Amount is the number of chips to push for bet and raise; it is
// ignored for every other action. The original state is never modified, so
// callers keep a consistent snapshot when Apply returns an error.
func (s *State) Apply(seat int, action ActionKind, amount int) (*State, error) {
	valid := s.ValidActions(seat)
	if valid == nil {
		return nil, fmt.Errorf("apply: seat %d cannot act", seat)
	}
	idx := -1
	for i := range valid {
		if valid[i].Action == action {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("apply: action %s not available to seat %d", action, seat)
	}
	switch action {
	case Bet, Raise:
		if amount < valid[idx].MinAmount || amount > valid[idx].MaxAmount {
			return nil, fmt.Errorf("apply: %s of %d outside [%d, %d]",
				action, amount, valid[idx].MinAmount, valid[idx].MaxAmount)
		}
	default:
		amount = valid[idx].MinAmount
	}

	ns := s.clone()
	p := &ns.Players[seat]
	prevBet := ns.CurrentBet
	pushed := 0

	switch action {
	case Fold:
		p.Folded = true
	case Check:
		// no chips move
	case Call:
		pushed = ns.push(seat, amount)
	case Bet, Raise:
		pushed = ns.push(seat, amount)
		ns.applyAggression(seat, prevBet)
	case AllIn:
		pushed = ns.push(seat, p.Chips)
		if p.CurrentBet > prevBet {
			ns.applyAggression(seat, prevBet)
		}
	}
	p.Acted = true
	ns.History = append(ns.History, ActionRecord{Seat: seat, Action: action, Amount: pushed, Street: ns.Street})

	if live := ns.LiveSeats(); len(live) == 1 {
		ns.completeByFolds(live[0])
		return ns, nil
	}
	if next := ns.nextToAct(seat); next != -1 {
		ns.Current = next
		return ns, nil
	}
	if err := ns.advanceStreets(); err != nil {
		return nil, err
	}
	return ns, nil
}

// push moves up to amount chips from the seat's stack into the pot and
// returns how many actually moved.
func (s *State) push(seat, amount int) int {
	p := &s.Players[seat]
	pay := min(amount, p.Chips)
	p.Chips -= pay
	p.CurrentBet += pay
	p.TotalBet += pay
	s.Pot += pay
	if p.Chips == 0 {
		p.AllIn = true
	}
	return pay
}

// applyAggression records seat's new bet level. A full raise (increment of
// at least minRaise) reopens the betting: every other live player may act
// again. A short all in raises the amount to call without reopening.
func (s *State) applyAggression(seat, prevBet int) {
	newBet := s.Players[seat].CurrentBet
	increment := newBet - prevBet
	if increment <= 0 {
		return
	}
	s.CurrentBet = newBet
	if increment >= s.MinRaise {
		s.MinRaise = increment
		s.LastFullRaiseBet = newBet
		s.LastRaiser = seat
		for i := range s.Players {
			if i == seat {
				continue
			}
			if s.Players[i].canAct() {
				s.Players[i].Acted = false
			}
		}
	}
}

// advanceStreets closes the current betting round and deals forward. When a
// street opens with fewer than two players able to act, dealing continues;
// after the river the hand goes to showdown.
func (s *State) advanceStreets() error {
	for {
		if s.Street >= River {
			return s.beginShowdown()
		}
		s.dealNextStreet()
		if first := s.firstToAct(); first != -1 {
			s.Current = first
			return nil
		}
	}
}

// dealNextStreet resets per-street betting state and deals the next board
// cards.
func (s *State) dealNextStreet() {
	for i := range s.Players {
		s.Players[i].CurrentBet = 0
		s.Players[i].Acted = false
	}
	s.CurrentBet = 0
	s.MinRaise = s.BigBlind
	s.LastFullRaiseBet = 0
	s.LastRaiser = -1
	s.Current = -1

	switch s.Street {
	case Preflop:
		s.Community = append(s.Community, s.Deck.Deal(3)...)
	case Flop, Turn:
		s.Community = append(s.Community, s.Deck.Deal(1)...)
	}
	s.Street++
}

// firstToAct picks the opening actor for a postflop street: the first seat
// clockwise from the button that can act, provided at least two can. With
// one or zero players able to act there is no betting to be had.
func (s *State) firstToAct() int {
	able := 0
	for i := range s.Players {
		if s.Players[i].canAct() {
			able++
		}
	}
	if able < 2 {
		return -1
	}
	for i := 1; i <= MaxSeats; i++ {
		seat := (s.Dealer + i) % MaxSeats
		if s.Players[seat].canAct() {
			return seat
		}
	}
	return -1
}
