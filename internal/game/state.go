// Package game implements a pure pot-limit Omaha engine. A State is an
// immutable snapshot of one hand; every operation returns a new State and
// never mutates its receiver. The engine knows nothing about transports,
// timers, or persistence.
package game

import (
	"fmt"
	"slices"

	"github.com/okihara/plo-game-sub001/internal/deck"
)

// MaxSeats is the number of seats at a table.
const MaxSeats = 6

// Street identifies a betting round within a hand.
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

var streetNames = [...]string{"preflop", "flop", "turn", "river", "showdown"}

func (s Street) String() string {
	if s < Preflop || s > Showdown {
		return fmt.Sprintf("street(%d)", int(s))
	}
	return streetNames[s]
}

// ActionKind is a betting decision a player can make.
type ActionKind int

const (
	Fold ActionKind = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

var actionNames = [...]string{"fold", "check", "call", "bet", "raise", "allin"}

func (a ActionKind) String() string {
	if a < Fold || a > AllIn {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// ParseActionKind maps a wire action name to its ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	for i, name := range actionNames {
		if name == s {
			return ActionKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Position is a seat's role for the current hand relative to the button.
type Position string

const (
	NoPosition         Position = ""
	PositionButton     Position = "BTN"
	PositionSmallBlind Position = "SB"
	PositionBigBlind   Position = "BB"
	PositionUTG        Position = "UTG"
	PositionHijack     Position = "HJ"
	PositionCutoff     Position = "CO"
)

// Player is one seat's view of the hand. Chips and SittingOut survive
// between hands; everything else is reset by StartHand.
type Player struct {
	ID          int
	DisplayName string
	Chips       int
	HoleCards   []deck.Card
	Position    Position

	CurrentBet int // chips pushed on the current street
	TotalBet   int // chips pushed over the whole hand
	Folded     bool
	AllIn      bool
	Acted      bool // acted since the last full raise on this street
	SittingOut bool
}

// InHand reports whether the player was dealt into the current hand.
func (p *Player) InHand() bool {
	return len(p.HoleCards) == 4
}

// Live reports whether the player still contests the pot.
func (p *Player) Live() bool {
	return p.InHand() && !p.Folded
}

// canAct reports whether the player could be asked for a decision.
func (p *Player) canAct() bool {
	return p.Live() && !p.AllIn
}

// SidePot is a layer of the pot with the seats eligible to win it.
type SidePot struct {
	Amount   int
	Eligible []int
}

// Winner records one seat's share of the pot at hand completion.
type Winner struct {
	Seat     int
	Amount   int
	HandName string // empty when the hand ended by folds
}

// ActionRecord is one entry in the hand's action log. Amount is the number
// of chips actually pushed by the action.
type ActionRecord struct {
	Seat   int
	Action ActionKind
	Amount int
	Street Street
}

// ValidAction describes one legal action with its pushed-chip bounds.
// Amounts are deltas from the player's stack, never resulting bet levels.
type ValidAction struct {
	Action    ActionKind
	MinAmount int
	MaxAmount int
}

// State is a full snapshot of a hand in progress. Transition methods return
// fresh copies; callers must treat a State as read-only once shared.
type State struct {
	Players   [MaxSeats]Player
	Deck      deck.Deck
	Community []deck.Card

	Pot      int
	SidePots []SidePot

	Street  Street
	Dealer  int // -1 before the first hand
	Current int // seat to act, -1 when no action is pending

	CurrentBet       int // highest per-street commitment to match
	MinRaise         int // size of the last full raise increment
	LastFullRaiseBet int // bet level reached by the last full raise
	LastRaiser       int // -1 when the street has no aggressor

	SmallBlind int
	BigBlind   int

	History      []ActionRecord
	HandComplete bool
	Winners      []Winner
}

// NewState seats MaxSeats players with the given stack and blinds. Seats the
// table does not fill should be marked SittingOut with zero chips.
func NewState(chips, smallBlind, bigBlind int) *State {
	s := &State{
		Dealer:     -1,
		Current:    -1,
		LastRaiser: -1,
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
	}
	for i := range s.Players {
		s.Players[i] = Player{ID: i, Chips: chips}
	}
	return s
}

// clone copies the state deeply enough that mutating the copy can never be
// observed through the original.
func (s *State) clone() *State {
	ns := *s
	ns.Community = slices.Clone(s.Community)
	ns.History = slices.Clone(s.History)
	ns.Winners = slices.Clone(s.Winners)
	ns.SidePots = make([]SidePot, len(s.SidePots))
	for i, sp := range s.SidePots {
		ns.SidePots[i] = SidePot{Amount: sp.Amount, Eligible: slices.Clone(sp.Eligible)}
	}
	for i := range ns.Players {
		ns.Players[i].HoleCards = slices.Clone(s.Players[i].HoleCards)
	}
	return &ns
}

// LiveSeats returns the seats still contesting the pot, in seat order.
func (s *State) LiveSeats() []int {
	var seats []int
	for i := range s.Players {
		if s.Players[i].Live() {
			seats = append(seats, i)
		}
	}
	return seats
}

// ChipTotal sums player stacks, the pot, and all side pots. It is constant
// across every transition of a hand.
func (s *State) ChipTotal() int {
	total := s.Pot
	for i := range s.Players {
		total += s.Players[i].Chips
	}
	for _, sp := range s.SidePots {
		total += sp.Amount
	}
	return total
}

// nextEligible returns the first seat clockwise after from that can be dealt
// a hand, or -1 if none exists.
func (s *State) nextEligible(from int) int {
	for i := 1; i <= MaxSeats; i++ {
		seat := (from + i) % MaxSeats
		p := &s.Players[seat]
		if !p.SittingOut && p.Chips > 0 {
			return seat
		}
	}
	return -1
}

// nextToAct returns the first seat clockwise after from that still owes a
// decision on the current street, or -1 when the betting round is closed.
func (s *State) nextToAct(from int) int {
	for i := 1; i <= MaxSeats; i++ {
		seat := (from + i) % MaxSeats
		p := &s.Players[seat]
		if !p.canAct() {
			continue
		}
		if p.CurrentBet != s.CurrentBet || !p.Acted {
			return seat
		}
	}
	return -1
}
