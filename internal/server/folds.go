package server

import (
	"github.com/okihara/plo-game-sub001/internal/game"
)

// silentFold must be called with t.mu held. It folds a seat whose player is
// absent: disconnected, departed mid-hand, or migrated by the fast-fold
// router. The room sees the same game:action_taken a voluntary fold emits,
// so clients cannot distinguish it, and no action timer runs.
func (t *Table) silentFold(seat int) {
	if t.state == nil {
		t.invariantBreach("silent fold with no hand", "seat", seat)
		return
	}
	t.logger.Debug("silent fold", "hand_id", t.handID, "seat", seat)
	if !t.applyAction(seat, game.Fold, 0) {
		t.invariantBreach("silent fold rejected", "seat", seat)
	}
}
