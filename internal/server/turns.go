package server

import (
	"github.com/okihara/plo-game-sub001/internal/game"
)

// requestNextAction must be called with t.mu held. It resolves deferred
// folds and absent seats first, which may recurse through applyAction, and
// only prompts a seat that is connected and able to decide.
func (t *Table) requestNextAction() {
	st := t.state
	if st == nil {
		t.invariantBreach("action requested with no hand")
		return
	}
	if st.HandComplete {
		t.beginCompletion()
		return
	}
	cur := st.Current
	if cur == -1 {
		t.invariantBreach("no seat to act on an incomplete hand")
		return
	}

	if playerID, ok := t.pendingEarlyFolds[cur]; ok {
		delete(t.pendingEarlyFolds, cur)
		t.logger.Debug("applying deferred fold", "hand_id", t.handID, "seat", cur, "player", playerID)
		if !t.applyAction(cur, game.Fold, 0) {
			t.invariantBreach("deferred fold rejected", "seat", cur)
		}
		return
	}

	seat := t.seats.Get(cur)
	if seat == nil || !seat.Connected() || seat.LeftForFastFold || seat.Departed {
		t.silentFold(cur)
		return
	}

	valid := st.ValidActions(cur)
	if len(valid) == 0 {
		t.invariantBreach("seat to act has no legal actions", "seat", cur)
		return
	}

	t.phase = PhaseAwaitingAction
	t.pending = &PendingAction{
		Seat:         cur,
		PlayerID:     seat.PlayerID,
		DisplayName:  seat.DisplayName,
		ValidActions: valid,
		RequestedAt:  t.clock.Now(),
		Timeout:      ActionTimeout,
	}
	t.room.Send(seat.PlayerID, MessageTypeActionRequired, ActionRequiredData{
		PlayerID:     seat.PlayerID,
		ValidActions: validActionData(valid),
		TimeoutMs:    int(ActionTimeout.Milliseconds()),
	})
	t.actionTimer = t.after(ActionTimeout, t.onActionTimeout)
}

func validActionData(valid []game.ValidAction) []ValidActionData {
	out := make([]ValidActionData, len(valid))
	for i, va := range valid {
		out[i] = ValidActionData{
			Action:    va.Action.String(),
			MinAmount: va.MinAmount,
			MaxAmount: va.MaxAmount,
		}
	}
	return out
}

// HandleAction processes a player's betting decision. Rejections are logged
// and counted but never sent to the client; an out-of-turn or malformed
// action simply has no effect. Returns whether the action was applied.
func (t *Table) HandleAction(playerID string, action game.ActionKind, amount int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == nil || t.phase != PhaseAwaitingAction {
		t.rejectAction(playerID, action, "no_action_pending")
		return false
	}
	if t.pending == nil || t.pending.PlayerID != playerID {
		t.rejectAction(playerID, action, "not_your_turn")
		return false
	}
	return t.applyAction(t.pending.Seat, action, amount)
}

// rejectAction must be called with t.mu held.
func (t *Table) rejectAction(playerID string, action game.ActionKind, reason string) {
	t.logger.Warn("action rejected",
		"hand_id", t.handID, "player", playerID, "action", action.String(),
		"phase", t.phase.String(), "reason", reason)
	if t.metrics != nil {
		t.metrics.MessagesRejected.WithLabelValues(reason).Inc()
	}
}

// applyAction must be called with t.mu held. It runs one engine transition,
// announces it, and drives the table into its next phase. Returns false when
// the engine rejects the action; the table state is untouched in that case.
func (t *Table) applyAction(seat int, action game.ActionKind, amount int) bool {
	old := t.state
	ns, err := old.Apply(seat, action, amount)
	if err != nil {
		t.logger.Warn("engine rejected action",
			"hand_id", t.handID, "seat", seat, "action", action.String(), "amount", amount, "error", err)
		if t.metrics != nil {
			t.metrics.MessagesRejected.WithLabelValues("invalid_action").Inc()
		}
		return false
	}

	t.clearTimers()
	t.pending = nil
	t.state = ns
	if t.metrics != nil {
		t.metrics.Actions.WithLabelValues(action.String()).Inc()
	}

	pushed := ns.History[len(ns.History)-1].Amount
	playerID := t.playerIDAt(seat)
	t.logger.Debug("action applied",
		"hand_id", t.handID, "seat", seat, "action", action.String(), "pushed", pushed)
	t.room.Room(MessageTypeActionTaken, ActionTakenData{
		PlayerID: playerID,
		Action:   action.String(),
		Amount:   pushed,
	})

	if t.fastFold && action == game.Fold && t.hooks.Folded != nil {
		if s := t.seats.Get(seat); s != nil && s.Connected() && !s.LeftForFastFold && !s.Departed {
			go t.hooks.Folded(t.id, s.PlayerID)
		}
	}

	t.afterTransition(old, ns)
	return true
}

// afterTransition must be called with t.mu held. It classifies the engine
// transition and schedules the matching client pacing.
func (t *Table) afterTransition(old, ns *game.State) {
	switch {
	case ns.HandComplete:
		if len(ns.Community) > len(old.Community) && len(ns.LiveSeats()) >= 2 {
			// Betting closed with cards to come: the engine already dealt
			// the full board, replay the reveals at animation speed.
			t.beginRunout(len(old.Community), old.Street)
			return
		}
		t.reachedShowdown = ns.Street == game.Showdown
		t.broadcastState(nil)
		t.beginCompletion()

	case ns.Street != old.Street:
		t.phase = PhaseAnimatingStreet
		t.delayTimer = t.after(ActionAnimationDelay, func() {
			t.broadcastState(nil)
			t.delayTimer = t.after(StreetTransitionDelay, func() {
				t.requestNextAction()
				t.broadcastState(nil)
			})
		})

	default:
		t.requestNextAction()
		t.broadcastState(nil)
	}
}

// onActionTimeout fires when the pending seat ran out its clock: check when
// checking is free, fold otherwise.
func (t *Table) onActionTimeout() {
	pa := t.pending
	if pa == nil || t.phase != PhaseAwaitingAction {
		return
	}
	action := game.Fold
	for _, va := range pa.ValidActions {
		if va.Action == game.Check {
			action = game.Check
			break
		}
	}
	if t.metrics != nil {
		t.metrics.ActionTimeouts.Inc()
	}
	t.logger.Info("action timeout",
		"hand_id", t.handID, "seat", pa.Seat, "player", pa.PlayerID, "resolved", action.String())

	if !t.applyAction(pa.Seat, action, 0) {
		t.invariantBreach("timeout action rejected", "seat", pa.Seat, "action", action.String())
		return
	}
	if action == game.Fold && t.fastFold && t.hooks.TimeoutFold != nil {
		if s := t.seats.Get(pa.Seat); s != nil && s.Connected() {
			go t.hooks.TimeoutFold(t.id, pa.PlayerID)
		}
	}
}

// HandleEarlyFold registers a fast-fold player's intent to fold out of turn.
// The fold is applied the moment their turn arrives, or immediately when it
// already has. The preflop big blind may not early-fold: after limps they
// still have the option to check. Returns whether the request was accepted.
func (t *Table) HandleEarlyFold(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.fastFold {
		t.rejectEarlyFold(playerID, "not_fast_fold")
		return false
	}
	seat, idx := t.seats.Find(playerID)
	if seat == nil {
		t.rejectEarlyFold(playerID, "not_seated")
		return false
	}
	st := t.state
	if st == nil || st.HandComplete || !t.handRunning() ||
		t.phase == PhaseRunningOut || t.phase == PhaseCompleting {
		t.rejectEarlyFold(playerID, "no_hand")
		return false
	}
	p := &st.Players[idx]
	if !p.InHand() || p.Folded || p.AllIn {
		t.rejectEarlyFold(playerID, "cannot_fold")
		return false
	}
	if st.Street == game.Preflop && p.Position == game.PositionBigBlind {
		t.rejectEarlyFold(playerID, "big_blind_preflop")
		return false
	}
	if _, dup := t.pendingEarlyFolds[idx]; dup {
		return true
	}
	if t.metrics != nil {
		t.metrics.EarlyFolds.Inc()
	}

	if t.pending != nil && t.pending.Seat == idx && t.phase == PhaseAwaitingAction {
		t.logger.Debug("early fold while acting, folding now", "hand_id", t.handID, "seat", idx)
		return t.applyAction(idx, game.Fold, 0)
	}
	t.logger.Debug("early fold registered", "hand_id", t.handID, "seat", idx, "player", playerID)
	t.pendingEarlyFolds[idx] = playerID
	return true
}

// rejectEarlyFold must be called with t.mu held.
func (t *Table) rejectEarlyFold(playerID, reason string) {
	t.logger.Warn("early fold rejected", "hand_id", t.handID, "player", playerID, "reason", reason)
	if t.metrics != nil {
		t.metrics.MessagesRejected.WithLabelValues("early_fold_"+reason).Inc()
	}
}
