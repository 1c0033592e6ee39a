package server

import "github.com/okihara/plo-game-sub001/internal/game"

// MaxPlayers is the number of seats at a table.
const MaxPlayers = game.MaxSeats

// Seat is one occupied chair, distinct from the engine's per-hand Player.
// The seat index is stable for the duration of occupation.
type Seat struct {
	PlayerID    string
	DisplayName string
	AvatarRef   string
	Transport   Transport // nil once the connection is gone

	Chips int
	BuyIn int

	// Seated while a hand was running; dealt in from the next hand.
	WaitingForNextHand bool
	// Migrated away by the fast-fold router; kept for display and history
	// until the hand ends, then evicted.
	LeftForFastFold bool
	// Asked to leave mid-hand; folded out and evicted at hand end.
	Departed bool
}

// Connected reports whether the seat still has a live transport.
func (s *Seat) Connected() bool {
	return s.Transport != nil
}

// SeatList is the fixed six-chair array of a table.
type SeatList struct {
	seats [MaxPlayers]*Seat
}

// Get returns the seat at index i, nil if empty or out of range.
func (sl *SeatList) Get(i int) *Seat {
	if i < 0 || i >= MaxPlayers {
		return nil
	}
	return sl.seats[i]
}

// Find returns the seat and index for a player, or (nil, -1).
func (sl *SeatList) Find(playerID string) (*Seat, int) {
	for i, s := range sl.seats {
		if s != nil && s.PlayerID == playerID {
			return s, i
		}
	}
	return nil, -1
}

// Count returns the number of occupied seats, sitting-out and waiting seats
// included.
func (sl *SeatList) Count() int {
	n := 0
	for _, s := range sl.seats {
		if s != nil {
			n++
		}
	}
	return n
}

// Seat places a player. preferred is honored when it names a free seat;
// otherwise the first free seat is used. Returns the seat index, or -1 when
// the table is full. preferred < 0 means no preference.
func (sl *SeatList) Seat(seat *Seat, preferred int) int {
	idx := -1
	if preferred >= 0 && preferred < MaxPlayers && sl.seats[preferred] == nil {
		idx = preferred
	} else {
		for i, s := range sl.seats {
			if s == nil {
				idx = i
				break
			}
		}
	}
	if idx == -1 {
		return -1
	}
	sl.seats[idx] = seat
	return idx
}

// Release empties seat i and returns its former occupant.
func (sl *SeatList) Release(i int) *Seat {
	if i < 0 || i >= MaxPlayers {
		return nil
	}
	s := sl.seats[i]
	sl.seats[i] = nil
	return s
}

// Each calls fn for every occupied seat in index order.
func (sl *SeatList) Each(fn func(i int, s *Seat)) {
	for i, s := range sl.seats {
		if s != nil {
			fn(i, s)
		}
	}
}
