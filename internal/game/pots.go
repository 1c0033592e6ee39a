package game

import (
	"slices"
	"sort"
)

// SidePotsFor layers the pot by ascending total commitment. For each
// distinct non-zero total T (taking the previous level as the floor), every
// player who committed at least T funds the layer, folded players included;
// only live players who committed at least T are eligible to win it.
// Adjacent layers with identical eligibility are merged.
func SidePotsFor(players []Player) []SidePot {
	var levels []int
	for i := range players {
		if tb := players[i].TotalBet; tb > 0 && !slices.Contains(levels, tb) {
			levels = append(levels, tb)
		}
	}
	sort.Ints(levels)

	var pots []SidePot
	prev := 0
	for _, level := range levels {
		amount := 0
		var eligible []int
		for i := range players {
			p := &players[i]
			if p.TotalBet < level {
				continue
			}
			amount += level - prev
			if !p.Folded && p.InHand() {
				eligible = append(eligible, i)
			}
		}
		if n := len(pots); n > 0 && slices.Equal(pots[n-1].Eligible, eligible) {
			pots[n-1].Amount += amount
		} else {
			pots = append(pots, SidePot{Amount: amount, Eligible: eligible})
		}
		prev = level
	}
	return pots
}
