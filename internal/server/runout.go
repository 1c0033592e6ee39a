package server

import (
	"github.com/okihara/plo-game-sub001/internal/deck"
	"github.com/okihara/plo-game-sub001/internal/evaluator"
	"github.com/okihara/plo-game-sub001/internal/game"
)

// runoutView rewinds the client projection to a point mid-runout: the board
// is truncated, bets stay on display, and the resolved winners are hidden
// until every card has been shown.
type runoutView struct {
	boardLen int
	street   game.Street
}

// beginRunout must be called with t.mu held, immediately after a transition
// that closed the betting with cards to come. The engine has already dealt
// the full board and paid the pot; the table replays the reveals one street
// at a time so clients can animate them.
func (t *Table) beginRunout(prevBoardLen int, prevStreet game.Street) {
	t.phase = PhaseRunningOut
	t.reachedShowdown = true
	t.showdownSentDuringRunOut = true
	t.logger.Info("all-in runout",
		"hand_id", t.handID, "from_street", prevStreet.String(), "board_len", prevBoardLen)

	t.broadcastState(&runoutView{boardLen: prevBoardLen, street: prevStreet})
	t.computeAllInEV(prevBoardLen)
	t.sendShowdown(false)
	t.scheduleRunoutReveal(nextRevealLen(prevBoardLen))
}

func nextRevealLen(boardLen int) int {
	if boardLen < 3 {
		return 3
	}
	return boardLen + 1
}

func streetForBoard(boardLen int) game.Street {
	switch boardLen {
	case 3:
		return game.Flop
	case 4:
		return game.Turn
	default:
		return game.River
	}
}

// scheduleRunoutReveal must be called with t.mu held.
func (t *Table) scheduleRunoutReveal(boardLen int) {
	d := RunoutStreetDelay
	if boardLen == 5 {
		d = runoutRiverDelay
	}
	t.delayTimer = t.after(d, func() {
		t.broadcastState(&runoutView{boardLen: boardLen, street: streetForBoard(boardLen)})
		if boardLen < 5 {
			t.scheduleRunoutReveal(boardLen + 1)
			return
		}
		// Full board shown; release the resolved state and finish up.
		t.broadcastState(nil)
		t.beginCompletion()
	})
}

// computeAllInEV must be called with t.mu held. It estimates each live
// seat's expected winnings from the board as it stood when the all-in was
// called, for the all-in EV column of the hand history. Failure only costs
// the annotation.
func (t *Table) computeAllInEV(boardLen int) {
	st := t.state
	var contenders []evaluator.Contender
	for i := range st.Players {
		p := &st.Players[i]
		if !p.InHand() {
			continue
		}
		contenders = append(contenders, evaluator.Contender{
			Seat:   i,
			Hole:   p.HoleCards,
			Folded: p.Folded,
		})
	}

	sidePots := game.SidePotsFor(st.Players[:])
	pots := make([]evaluator.Pot, len(sidePots))
	for i, sp := range sidePots {
		pots[i] = evaluator.Pot{Amount: sp.Amount, Eligible: sp.Eligible}
	}

	board := st.Community[:boardLen]
	winnings, err := evaluator.ExpectedWinningsParallel(
		contenders, board, pots, equitySamples, t.rng.Int63(), equityWorkers)
	if err != nil {
		t.logger.Error("all-in equity failed", "hand_id", t.handID, "error", err)
		t.allInEV = nil
		return
	}
	ev := make(map[int]int, len(winnings))
	for seat, won := range winnings {
		ev[seat] = won - st.Players[seat].TotalBet
	}
	t.allInEV = ev
}

// sendShowdown must be called with t.mu held. Every live seat's hole cards
// go face up to the whole room. During a runout winners and hand names are
// withheld: the board has not been shown yet and either would give the
// result away.
func (t *Table) sendShowdown(withWinners bool) {
	st := t.state
	data := ShowdownData{
		Winners: []ShowdownWinner{},
		Players: []ShowdownHand{},
	}
	for _, seat := range st.LiveSeats() {
		p := &st.Players[seat]
		hand := ShowdownHand{
			SeatIndex: seat,
			PlayerID:  t.playerIDAt(seat),
			Cards:     deck.Codes(p.HoleCards),
		}
		if withWinners {
			if rank, err := evaluator.EvaluateOmaha(p.HoleCards, st.Community); err == nil {
				hand.HandName = rank.Name()
			}
		}
		data.Players = append(data.Players, hand)
	}
	if withWinners {
		for _, w := range st.Winners {
			data.Winners = append(data.Winners, ShowdownWinner{
				PlayerID: t.playerIDAt(w.Seat),
				Amount:   w.Amount,
				HandName: w.HandName,
				Cards:    deck.Codes(st.Players[w.Seat].HoleCards),
			})
		}
	}
	t.room.Room(MessageTypeShowdown, data)
}
