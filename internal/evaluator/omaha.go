package evaluator

import (
	"fmt"

	"github.com/okihara/plo-game-sub001/internal/deck"
)

// Omaha showdowns must use exactly two of the four hole cards and exactly
// three of the five board cards: C(4,2) x C(5,3) = 60 combinations.
var holePairs = [6][2]int{
	{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3},
}

var boardTriples = [10][3]int{
	{0, 1, 2}, {0, 1, 3}, {0, 1, 4}, {0, 2, 3}, {0, 2, 4},
	{0, 3, 4}, {1, 2, 3}, {1, 2, 4}, {1, 3, 4}, {2, 3, 4},
}

// EvaluateOmaha returns the best rank reachable from four hole cards and a
// five-card board under the exactly-two-hole-cards rule.
func EvaluateOmaha(hole []deck.Card, board []deck.Card) (HandRank, error) {
	if len(hole) != 4 {
		return 0, fmt.Errorf("omaha hand needs 4 hole cards, got %d", len(hole))
	}
	if len(board) != 5 {
		return 0, fmt.Errorf("omaha showdown needs 5 board cards, got %d", len(board))
	}

	var best HandRank
	for _, hp := range holePairs {
		holeBits := CardBit(hole[hp[0]]) | CardBit(hole[hp[1]])
		for _, bt := range boardTriples {
			h := holeBits | CardBit(board[bt[0]]) | CardBit(board[bt[1]]) | CardBit(board[bt[2]])
			if r := Evaluate5(h); r > best {
				best = r
			}
		}
	}
	return best, nil
}
