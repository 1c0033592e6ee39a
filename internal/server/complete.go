package server

import (
	"github.com/okihara/plo-game-sub001/internal/deck"
	"github.com/okihara/plo-game-sub001/internal/game"
	"github.com/okihara/plo-game-sub001/internal/server/history"
)

// beginCompletion must be called with t.mu held, once the engine reports the
// hand complete and any runout animation has finished. A showdown reached by
// river betting still owes the room its game:showdown; a runout already sent
// one, and a fold-out never shows cards.
func (t *Table) beginCompletion() {
	t.phase = PhaseCompleting
	t.pending = nil
	t.clearTimers()

	if t.reachedShowdown && !t.showdownSentDuringRunOut {
		t.delayTimer = t.after(ShowdownDelay, func() {
			t.sendShowdown(true)
			t.delayTimer = t.after(HandCompleteDelay, t.finishHand)
		})
		return
	}
	t.delayTimer = t.after(HandCompleteDelay, t.finishHand)
}

// finishHand must be called with t.mu held. It announces the result, records
// the hand, settles stacks, evicts seats that are done here, and schedules
// the next hand.
func (t *Table) finishHand() {
	st := t.state
	if st == nil {
		t.invariantBreach("finishing with no hand")
		return
	}

	winners := make([]HandCompleteWinner, 0, len(st.Winners))
	for _, w := range st.Winners {
		winners = append(winners, HandCompleteWinner{
			PlayerID: t.playerIDAt(w.Seat),
			Amount:   w.Amount,
			HandName: w.HandName,
		})
	}
	t.room.Room(MessageTypeHandComplete, HandCompleteData{Winners: winners, Rake: 0})

	if t.metrics != nil {
		t.metrics.HandsCompleted.Inc()
		t.metrics.HandSeconds.Observe(t.clock.Since(t.handStartedAt).Seconds())
	}
	t.recordHistory(st)

	// Stacks flow back to the seats. Seats that joined mid-hand were never
	// dealt; their buy-in is untouched.
	for i := 0; i < MaxPlayers; i++ {
		seat := t.seats.Get(i)
		if seat == nil || seat.WaitingForNextHand || !st.Players[i].InHand() {
			continue
		}
		seat.Chips = st.Players[i].Chips
	}

	for i := 0; i < MaxPlayers; i++ {
		seat := t.seats.Get(i)
		if seat == nil {
			continue
		}
		switch {
		case seat.LeftForFastFold, seat.Departed:
			t.seats.Release(i)
			if t.metrics != nil {
				t.metrics.PlayersSeated.Dec()
			}
		case seat.Chips <= 0 && !seat.WaitingForNextHand:
			t.room.Send(seat.PlayerID, MessageTypeTableBusted,
				TableBustedData{Message: "You are out of chips."})
			t.room.Leave(seat.PlayerID)
			t.seats.Release(i)
			if t.metrics != nil {
				t.metrics.PlayersSeated.Dec()
			}
			t.logger.Info("player busted", "player", seat.PlayerID, "seat", i)
		}
	}

	showdown := t.reachedShowdown
	t.logger.Info("hand complete",
		"hand_id", t.handID, "winners", len(st.Winners), "showdown", showdown)

	t.state = nil
	t.handID = ""
	t.pending = nil
	t.pendingEarlyFolds = make(map[int]string)
	t.allInEV = nil
	t.reachedShowdown = false
	t.showdownSentDuringRunOut = false
	t.phase = PhaseBetweenHands
	t.broadcastState(nil)

	delay := NextHandDelay
	if showdown {
		delay = NextHandShowdownDelay
	}
	t.delayTimer = t.after(delay, func() {
		t.phase = PhaseIdle
		if t.fastFold && t.hooks.Reassign != nil {
			var ids []string
			t.seats.Each(func(_ int, s *Seat) {
				ids = append(ids, s.PlayerID)
			})
			go t.hooks.Reassign(t.id, ids)
			return
		}
		t.maybeStartHand()
	})
}

// recordHistory must be called with t.mu held, before departed seats are
// released so their ids still resolve.
func (t *Table) recordHistory(st *game.State) {
	if t.recorder == nil {
		return
	}
	rec := &history.HandRecord{
		HandID:     t.handID,
		TableID:    t.id,
		SmallBlind: st.SmallBlind,
		BigBlind:   st.BigBlind,
		PlayedAt:   t.handStartedAt,
		DealerSeat: st.Dealer,
		Board:      deck.Codes(st.Community),
	}
	for _, a := range st.History {
		rec.Actions = append(rec.Actions, history.ActionEntry{
			Seat:   a.Seat,
			Action: a.Action.String(),
			Amount: a.Amount,
			Street: a.Street.String(),
		})
	}
	for i := range st.Players {
		p := &st.Players[i]
		if !p.InHand() {
			continue
		}
		pr := history.PlayerRecord{
			Seat:          i,
			PlayerID:      t.playerIDAt(i),
			DisplayName:   p.DisplayName,
			StartingChips: t.startingChips[i],
			HoleCards:     deck.Codes(p.HoleCards),
			FinalChips:    p.Chips,
			Profit:        p.Chips - t.startingChips[i],
		}
		if ev, ok := t.allInEV[i]; ok {
			v := ev
			pr.AllInEVProfit = &v
		}
		rec.Players = append(rec.Players, pr)
	}
	for _, w := range st.Winners {
		rec.Winners = append(rec.Winners, history.WinnerRecord{
			Seat:     w.Seat,
			PlayerID: t.playerIDAt(w.Seat),
			Amount:   w.Amount,
			HandName: w.HandName,
		})
	}
	t.recorder.Record(rec)
}
