package server

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okihara/plo-game-sub001/internal/game"
	"github.com/okihara/plo-game-sub001/internal/metrics"
)

type fakeTransport struct {
	mu   sync.Mutex
	msgs []*Message
}

func (f *fakeTransport) Send(msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) messages() []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Message, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *fakeTransport) count(event MessageType) int {
	n := 0
	for _, m := range f.messages() {
		if m.Type == event {
			n++
		}
	}
	return n
}

func (f *fakeTransport) last(event MessageType) *Message {
	msgs := f.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == event {
			return msgs[i]
		}
	}
	return nil
}

func decodePayload[T any](t *testing.T, msg *Message) T {
	t.Helper()
	require.NotNil(t, msg)
	var out T
	require.NoError(t, json.Unmarshal(msg.Data, &out))
	return out
}

func (f *fakeTransport) lastState(t *testing.T) ClientGameState {
	t.Helper()
	return decodePayload[GameStateData](t, f.last(MessageTypeGameState)).State
}

func newTestTable(t *testing.T, fastFold bool) (*Table, *quartz.Mock) {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{})
	clock := quartz.NewMock(t)
	tbl := NewTable(TableOptions{
		ID:         "t1",
		SmallBlind: 1,
		BigBlind:   2,
		FastFold:   fastFold,
		Logger:     logger,
		Clock:      clock,
		Metrics:    metrics.New(),
		Rand:       rand.New(rand.NewSource(42)),
	})
	return tbl, clock
}

func advance(t *testing.T, clock *quartz.Mock, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	clock.Advance(d).MustWait(ctx)
}

// seatThree seats p0, p1, p2 with 200 chips each and starts the first hand:
// dealer seat 0, small blind seat 1, big blind seat 2, seat 0 to act.
func seatThree(t *testing.T, tbl *Table) map[string]*fakeTransport {
	t.Helper()
	transports := make(map[string]*fakeTransport)
	for _, id := range []string{"p0", "p1", "p2"} {
		tr := &fakeTransport{}
		transports[id] = tr
		_, err := tbl.SeatPlayer(id, "name-"+id, "", tr, 200, -1, false)
		require.NoError(t, err)
	}
	tbl.TriggerMaybeStartHand()
	return transports
}

func seatChips(tbl *Table, seat int) int {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	s := tbl.seats.Get(seat)
	if s == nil {
		return -1
	}
	return s.Chips
}

func TestSeatPlayerOrdering(t *testing.T) {
	tbl, _ := newTestTable(t, false)
	transports := seatThree(t, tbl)

	// table:joined must arrive before the hole cards of the first hand.
	msgs := transports["p2"].messages()
	joinedAt, cardsAt := -1, -1
	for i, m := range msgs {
		switch m.Type {
		case MessageTypeTableJoined:
			joinedAt = i
		case MessageTypeHoleCards:
			cardsAt = i
		}
	}
	require.NotEqual(t, -1, joinedAt)
	require.NotEqual(t, -1, cardsAt)
	assert.Less(t, joinedAt, cardsAt)

	for _, id := range []string{"p0", "p1", "p2"} {
		cards := decodePayload[HoleCardsData](t, transports[id].last(MessageTypeHoleCards))
		assert.Len(t, cards.Cards, 4, "four hole cards for %s", id)
	}
}

func TestHandDoesNotStartBelowMinimum(t *testing.T) {
	tbl, _ := newTestTable(t, false)
	tr := &fakeTransport{}
	_, err := tbl.SeatPlayer("p0", "a", "", tr, 200, -1, false)
	require.NoError(t, err)
	tr2 := &fakeTransport{}
	_, err = tbl.SeatPlayer("p1", "b", "", tr2, 200, -1, false)
	require.NoError(t, err)
	tbl.TriggerMaybeStartHand()

	assert.False(t, tbl.HandInProgress())
	assert.Equal(t, 0, tr.count(MessageTypeHoleCards))
}

func TestFoldToBigBlind(t *testing.T) {
	tbl, clock := newTestTable(t, false)
	transports := seatThree(t, tbl)

	// Seat 0 is under the gun.
	req := decodePayload[ActionRequiredData](t, transports["p0"].last(MessageTypeActionRequired))
	assert.Equal(t, "p0", req.PlayerID)
	assert.Equal(t, 20000, req.TimeoutMs)

	require.True(t, tbl.HandleAction("p0", game.Fold, 0))
	require.True(t, tbl.HandleAction("p1", game.Fold, 0))

	// Fold-out: no showdown, hand_complete after HAND_COMPLETE_DELAY_MS.
	assert.Equal(t, 0, transports["p2"].count(MessageTypeShowdown))
	assert.Equal(t, 0, transports["p2"].count(MessageTypeHandComplete))
	advance(t, clock, HandCompleteDelay)

	done := decodePayload[HandCompleteData](t, transports["p2"].last(MessageTypeHandComplete))
	require.Len(t, done.Winners, 1)
	assert.Equal(t, "p2", done.Winners[0].PlayerID)
	assert.Equal(t, 3, done.Winners[0].Amount)
	assert.Empty(t, done.Winners[0].HandName)
	assert.Equal(t, 0, done.Rake)

	assert.Equal(t, 200, seatChips(tbl, 0))
	assert.Equal(t, 199, seatChips(tbl, 1))
	assert.Equal(t, 201, seatChips(tbl, 2))

	// NEXT_HAND_DELAY_MS later the button has moved and a new hand runs.
	advance(t, clock, NextHandDelay)
	require.True(t, tbl.HandInProgress())
	assert.Equal(t, 1, tbl.state.Dealer)
	assert.Equal(t, 2, transports["p0"].count(MessageTypeHoleCards))
}

func TestOutOfTurnActionRejected(t *testing.T) {
	tbl, _ := newTestTable(t, false)
	transports := seatThree(t, tbl)

	assert.False(t, tbl.HandleAction("p1", game.Call, 1))
	assert.False(t, tbl.HandleAction("nobody", game.Fold, 0))
	// Invalid amount from the right player is rejected too.
	assert.False(t, tbl.HandleAction("p0", game.Raise, 1))

	// No rejection leaks to any client, and the turn is unchanged.
	for _, tr := range transports {
		assert.Equal(t, 0, tr.count(MessageTypeError))
		assert.Equal(t, 0, tr.count(MessageTypeActionTaken))
	}
	require.True(t, tbl.HandleAction("p0", game.Call, 0))
}

func TestActionTimeoutFoldsWhenFacingBet(t *testing.T) {
	tbl, clock := newTestTable(t, false)
	transports := seatThree(t, tbl)

	advance(t, clock, ActionTimeout)

	taken := decodePayload[ActionTakenData](t, transports["p1"].last(MessageTypeActionTaken))
	assert.Equal(t, "p0", taken.PlayerID)
	assert.Equal(t, "fold", taken.Action)

	req := decodePayload[ActionRequiredData](t, transports["p1"].last(MessageTypeActionRequired))
	assert.Equal(t, "p1", req.PlayerID)
}

func TestActionTimeoutChecksWhenFree(t *testing.T) {
	tbl, clock := newTestTable(t, false)
	transports := seatThree(t, tbl)

	require.True(t, tbl.HandleAction("p0", game.Call, 0))
	require.True(t, tbl.HandleAction("p1", game.Call, 0))

	// The big blind has the option; let it time out.
	advance(t, clock, ActionTimeout)
	taken := decodePayload[ActionTakenData](t, transports["p0"].last(MessageTypeActionTaken))
	assert.Equal(t, "p2", taken.PlayerID)
	assert.Equal(t, "check", taken.Action)

	// Street transition pacing: state after the animation delay, next
	// action request after the transition delay.
	before := transports["p1"].count(MessageTypeActionRequired)
	advance(t, clock, ActionAnimationDelay)
	st := transports["p0"].lastState(t)
	assert.Equal(t, "flop", st.CurrentStreet)
	assert.Len(t, st.CommunityCards, 3)
	assert.Equal(t, 6, st.Pot)

	advance(t, clock, StreetTransitionDelay)
	req := decodePayload[ActionRequiredData](t, transports["p1"].last(MessageTypeActionRequired))
	assert.Equal(t, "p1", req.PlayerID)
	assert.Greater(t, transports["p1"].count(MessageTypeActionRequired), before)
}

func TestAllInRunoutPacing(t *testing.T) {
	tbl, clock := newTestTable(t, false)
	transports := make(map[string]*fakeTransport)
	for _, id := range []string{"p0", "p1"} {
		tr := &fakeTransport{}
		transports[id] = tr
		_, err := tbl.SeatPlayer(id, id, "", tr, 200, -1, false)
		require.NoError(t, err)
	}
	// The big blind sits with exactly the blind: posting it is an all-in.
	short := &fakeTransport{}
	transports["p2"] = short
	_, err := tbl.SeatPlayer("p2", "p2", "", short, 2, -1, false)
	require.NoError(t, err)
	tbl.TriggerMaybeStartHand()

	require.True(t, tbl.HandleAction("p0", game.Call, 0))
	require.True(t, tbl.HandleAction("p1", game.Fold, 0))

	// Betting is closed with two live stacks: showdown comes immediately,
	// with hole cards but no winners, and the board is still preflop.
	sd := decodePayload[ShowdownData](t, short.last(MessageTypeShowdown))
	assert.Empty(t, sd.Winners)
	require.Len(t, sd.Players, 2)
	for _, hand := range sd.Players {
		assert.Len(t, hand.Cards, 4)
		assert.Empty(t, hand.HandName)
	}
	// Intermediate states must not leak the result: displayed stacks plus
	// the displayed pot always add up to the table total, even though the
	// engine has already paid the winner.
	displayedTotal := func(cs ClientGameState) int {
		total := cs.Pot
		for _, p := range cs.Players {
			if p != nil {
				total += p.Chips
			}
		}
		return total
	}
	st := short.lastState(t)
	assert.Equal(t, "preflop", st.CurrentStreet)
	assert.Empty(t, st.CommunityCards)
	assert.Equal(t, 5, st.Pot)
	assert.True(t, st.IsHandInProgress)
	assert.Equal(t, 402, displayedTotal(st))

	advance(t, clock, RunoutStreetDelay)
	assert.Len(t, short.lastState(t).CommunityCards, 3)
	assert.Equal(t, "flop", short.lastState(t).CurrentStreet)
	assert.Equal(t, 402, displayedTotal(short.lastState(t)))

	advance(t, clock, RunoutStreetDelay)
	assert.Len(t, short.lastState(t).CommunityCards, 4)

	// The river reveal takes 1.5x the street delay.
	advance(t, clock, RunoutStreetDelay)
	assert.Len(t, short.lastState(t).CommunityCards, 4)
	advance(t, clock, runoutRiverDelay-RunoutStreetDelay)
	assert.Len(t, short.lastState(t).CommunityCards, 5)

	// One showdown total, then hand_complete after the completion delay.
	assert.Equal(t, 1, short.count(MessageTypeShowdown))
	advance(t, clock, HandCompleteDelay)
	done := decodePayload[HandCompleteData](t, transports["p0"].last(MessageTypeHandComplete))
	paid := 0
	for _, w := range done.Winners {
		assert.NotEmpty(t, w.HandName)
		paid += w.Amount
	}
	assert.Equal(t, 5, paid)

	// Chips are conserved across the hand.
	total := 0
	for seat := 0; seat < MaxPlayers; seat++ {
		if c := seatChips(tbl, seat); c >= 0 {
			total += c
		}
	}
	if short.count(MessageTypeTableBusted) == 1 {
		// The short stack lost and was evicted with its zero stack.
		assert.Equal(t, -1, seatChips(tbl, 2))
		assert.Equal(t, 402, total)
	} else {
		assert.Equal(t, 402, total)
		assert.GreaterOrEqual(t, seatChips(tbl, 2), 4)
	}
}

func TestRiverShowdownDelaySequence(t *testing.T) {
	tbl, clock := newTestTable(t, false)
	transports := seatThree(t, tbl)

	// Check the hand down to the river.
	require.True(t, tbl.HandleAction("p0", game.Call, 0))
	require.True(t, tbl.HandleAction("p1", game.Call, 0))
	require.True(t, tbl.HandleAction("p2", game.Check, 0))

	for street := 0; street < 3; street++ {
		advance(t, clock, ActionAnimationDelay)
		advance(t, clock, StreetTransitionDelay)
		require.True(t, tbl.HandleAction("p1", game.Check, 0))
		require.True(t, tbl.HandleAction("p2", game.Check, 0))
		require.True(t, tbl.HandleAction("p0", game.Check, 0))
	}

	// River checked through: showdown after SHOWDOWN_DELAY_MS, winners
	// included, then hand_complete.
	assert.Equal(t, 0, transports["p0"].count(MessageTypeShowdown))
	advance(t, clock, ShowdownDelay)
	sd := decodePayload[ShowdownData](t, transports["p0"].last(MessageTypeShowdown))
	require.NotEmpty(t, sd.Winners)
	paid := 0
	for _, w := range sd.Winners {
		assert.NotEmpty(t, w.HandName)
		assert.Len(t, w.Cards, 4)
		paid += w.Amount
	}
	assert.Equal(t, 6, paid)

	advance(t, clock, HandCompleteDelay)
	assert.Equal(t, 1, transports["p0"].count(MessageTypeHandComplete))

	// After a showdown the next hand waits the longer delay.
	advance(t, clock, NextHandDelay)
	assert.False(t, tbl.HandInProgress())
	advance(t, clock, NextHandShowdownDelay-NextHandDelay)
	assert.True(t, tbl.HandInProgress())
}

func TestHoleCardsMaskedPerViewer(t *testing.T) {
	tbl, _ := newTestTable(t, false)
	transports := seatThree(t, tbl)

	st := transports["p0"].lastState(t)
	for _, p := range st.Players {
		if p == nil {
			continue
		}
		if p.PlayerID == "p0" {
			assert.Len(t, p.HoleCards, 4)
		} else {
			assert.Empty(t, p.HoleCards)
		}
	}

	spectator := &fakeTransport{}
	tbl.AddSpectator("watcher", spectator)
	st = spectator.lastState(t)
	for _, p := range st.Players {
		if p == nil {
			continue
		}
		assert.Len(t, p.HoleCards, 4, "spectator sees seat %d", p.Seat)
	}
}

func TestSeatPlayerMidHandWaits(t *testing.T) {
	tbl, clock := newTestTable(t, false)
	transports := seatThree(t, tbl)

	late := &fakeTransport{}
	_, err := tbl.SeatPlayer("p3", "late", "", late, 200, -1, false)
	require.NoError(t, err)
	tbl.TriggerMaybeStartHand()

	assert.Equal(t, 0, late.count(MessageTypeHoleCards))
	st := late.lastState(t)
	var found bool
	for _, p := range st.Players {
		if p != nil && p.PlayerID == "p3" {
			found = true
			assert.True(t, p.WaitingForNextHand)
		}
	}
	require.True(t, found)

	require.True(t, tbl.HandleAction("p0", game.Fold, 0))
	require.True(t, tbl.HandleAction("p1", game.Fold, 0))
	advance(t, clock, HandCompleteDelay)
	advance(t, clock, NextHandDelay)

	assert.Equal(t, 1, late.count(MessageTypeHoleCards))
	_ = transports
}

func TestUnseatMidHandFoldsOnTurn(t *testing.T) {
	tbl, _ := newTestTable(t, false)
	transports := seatThree(t, tbl)

	// The small blind leaves while seat 0 is acting: the seat stays until
	// hand completion and folds when the turn reaches it.
	require.NoError(t, tbl.Unseat("p1"))
	assert.Equal(t, 1, transports["p1"].count(MessageTypeTableLeft))
	assert.Equal(t, 3, tbl.PlayerCount())

	require.True(t, tbl.HandleAction("p0", game.Call, 0))
	taken := decodePayload[ActionTakenData](t, transports["p0"].last(MessageTypeActionTaken))
	assert.Equal(t, "p1", taken.PlayerID)
	assert.Equal(t, "fold", taken.Action)
}

func TestUnseatActingPlayerFoldsImmediately(t *testing.T) {
	tbl, _ := newTestTable(t, false)
	transports := seatThree(t, tbl)

	require.NoError(t, tbl.Unseat("p0"))
	taken := decodePayload[ActionTakenData](t, transports["p1"].last(MessageTypeActionTaken))
	assert.Equal(t, "p0", taken.PlayerID)
	assert.Equal(t, "fold", taken.Action)

	req := decodePayload[ActionRequiredData](t, transports["p1"].last(MessageTypeActionRequired))
	assert.Equal(t, "p1", req.PlayerID)
}

func TestUnseatBetweenHandsReleasesSeat(t *testing.T) {
	tbl, _ := newTestTable(t, false)
	tr := &fakeTransport{}
	_, err := tbl.SeatPlayer("p0", "a", "", tr, 200, -1, false)
	require.NoError(t, err)
	require.NoError(t, tbl.Unseat("p0"))
	assert.Equal(t, 0, tbl.PlayerCount())
	assert.Error(t, tbl.Unseat("p0"))
}

func TestSetChipsOnlyBetweenHands(t *testing.T) {
	tbl, clock := newTestTable(t, false)
	seatThree(t, tbl)

	assert.Error(t, tbl.SetChips("p0", 500))

	require.True(t, tbl.HandleAction("p0", game.Fold, 0))
	require.True(t, tbl.HandleAction("p1", game.Fold, 0))
	advance(t, clock, HandCompleteDelay)

	require.NoError(t, tbl.SetChips("p0", 500))
	assert.Equal(t, 500, seatChips(tbl, 0))
	assert.Error(t, tbl.SetChips("p0", -1))
	assert.Error(t, tbl.SetChips("ghost", 100))
}

func TestPausedTableDoesNotDeal(t *testing.T) {
	tbl, _ := newTestTable(t, false)
	tbl.SetPaused(true)
	seatThree(t, tbl)
	assert.False(t, tbl.HandInProgress())

	tbl.SetPaused(false)
	assert.True(t, tbl.HandInProgress())
}
