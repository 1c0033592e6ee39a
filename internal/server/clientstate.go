package server

import (
	"github.com/okihara/plo-game-sub001/internal/deck"
)

// broadcastState must be called with t.mu held. Every room member gets the
// projection built for their own eyes; spectators see every hole card.
func (t *Table) broadcastState(view *runoutView) {
	t.room.Each(MessageTypeGameState, func(viewerID string) any {
		return GameStateData{State: t.projectState(viewerID, t.spectators[viewerID], view)}
	})
}

// projectState must be called with t.mu held. It renders the table for one
// viewer: seat roster always, engine overlay when a hand exists, and the
// runout rewind when view is non-nil. Hole cards other than the viewer's own
// are omitted unless unmasked.
func (t *Table) projectState(viewerID string, unmasked bool, view *runoutView) ClientGameState {
	cs := ClientGameState{
		TableID:           t.id,
		Players:           make([]*ClientPlayer, MaxPlayers),
		CommunityCards:    []string{},
		SmallBlind:        t.smallBlind,
		BigBlind:          t.bigBlind,
		DealerSeat:        t.dealer,
		CurrentPlayerSeat: -1,
		IsHandInProgress:  t.handRunning(),
	}
	for i := 0; i < MaxPlayers; i++ {
		seat := t.seats.Get(i)
		if seat == nil {
			continue
		}
		cs.Players[i] = &ClientPlayer{
			Seat:               i,
			PlayerID:           seat.PlayerID,
			DisplayName:        seat.DisplayName,
			AvatarRef:          seat.AvatarRef,
			Chips:              seat.Chips,
			IsConnected:        seat.Connected(),
			WaitingForNextHand: seat.WaitingForNextHand,
		}
	}

	st := t.state
	if st == nil {
		return cs
	}

	for i := range st.Players {
		p := &st.Players[i]
		if !p.InHand() {
			continue
		}
		cp := cs.Players[i]
		if cp == nil {
			continue
		}
		cp.Chips = p.Chips
		cp.CurrentBet = p.CurrentBet
		cp.TotalBet = p.TotalBet
		cp.Folded = p.Folded
		cp.IsAllIn = p.AllIn
		cp.Position = string(p.Position)
		if unmasked || cp.PlayerID == viewerID {
			cp.HoleCards = deck.Codes(p.HoleCards)
		}
	}

	board := st.Community
	cs.Pot = st.Pot
	for _, sp := range st.SidePots {
		cs.SidePots = append(cs.SidePots, ClientSidePot{Amount: sp.Amount, Eligible: sp.Eligible})
	}
	cs.CurrentStreet = st.Street.String()
	cs.CurrentBet = st.CurrentBet
	cs.MinRaise = st.MinRaise
	cs.CurrentPlayerSeat = st.Current

	if view != nil {
		// The engine already resolved the hand; show the street as it is
		// being revealed, with the whole pot still up for grabs and the
		// payout rewound out of the winners' stacks.
		board = st.Community[:view.boardLen]
		cs.CurrentStreet = view.street.String()
		cs.CurrentPlayerSeat = -1
		cs.CurrentBet = 0
		cs.MinRaise = 0
		cs.SidePots = nil
		cs.IsHandInProgress = true
		pot := 0
		for i := range st.Players {
			pot += st.Players[i].TotalBet
		}
		cs.Pot = pot
		for _, w := range st.Winners {
			if cp := cs.Players[w.Seat]; cp != nil {
				cp.Chips -= w.Amount
			}
		}
	}
	cs.CommunityCards = deck.Codes(board)

	if view == nil && t.pending != nil {
		cs.ActionTimeoutAt = t.pending.RequestedAt.Add(t.pending.Timeout).UnixMilli()
		cs.ActionTimeoutMs = int(t.pending.Timeout.Milliseconds())
	}
	return cs
}
