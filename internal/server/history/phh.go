package history

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/okihara/plo-game-sub001/internal/phh"
)

// PHHSink writes each hand as a standalone .phh file, grouped by table
// under a base directory. Files are complete on Write, so the sink has
// nothing to flush.
type PHHSink struct {
	dir string
}

// NewPHHSink creates the base directory if needed.
func NewPHHSink(dir string) (*PHHSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("phh dir: %w", err)
	}
	return &PHHSink{dir: dir}, nil
}

// Name implements Sink.
func (s *PHHSink) Name() string { return "phh" }

// Write converts the record and writes it as one PHH document.
func (s *PHHSink) Write(rec *HandRecord) error {
	hand, err := phhHand(rec)
	if err != nil {
		return fmt.Errorf("convert hand %s: %w", rec.HandID, err)
	}
	data, err := phh.EncodeToBytes(hand)
	if err != nil {
		return fmt.Errorf("encode hand %s: %w", rec.HandID, err)
	}
	tableDir := filepath.Join(s.dir, rec.TableID)
	if err := os.MkdirAll(tableDir, 0o755); err != nil {
		return fmt.Errorf("phh table dir: %w", err)
	}
	path := filepath.Join(tableDir, rec.HandID+".phh")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write hand %s: %w", rec.HandID, err)
	}
	return nil
}

// Close implements Sink.
func (s *PHHSink) Close() error { return nil }

// phhHand converts a hand record to PHH form. Players are renumbered so
// that p1 is the small blind and the button acts last, per the PHH
// player-ordering convention.
func phhHand(rec *HandRecord) (*phh.Hand, error) {
	if len(rec.Players) < 2 {
		return nil, fmt.Errorf("hand has %d players", len(rec.Players))
	}

	ordered := orderFromSmallBlind(rec.Players, rec.DealerSeat)
	n := len(ordered)

	playerNum := make(map[int]int, n) // seat -> 1-based PHH player number
	for i, p := range ordered {
		playerNum[p.Seat] = i + 1
	}

	hand := &phh.Hand{
		Variant:           phh.VariantPLO,
		Antes:             make([]int, n),
		BlindsOrStraddles: make([]int, n),
		MinBet:            rec.BigBlind,
		StartingStacks:    make([]int, n),
		FinishingStacks:   make([]int, n),
		Players:           make([]string, n),
		HandID:            rec.HandID,
		Table:             rec.TableID,
		Time:              rec.PlayedAt.UTC().Format("15:04:05"),
		TimeZone:          "UTC",
	}
	hand.BlindsOrStraddles[0] = rec.SmallBlind
	hand.BlindsOrStraddles[1] = rec.BigBlind
	for i, p := range ordered {
		hand.StartingStacks[i] = p.StartingChips
		hand.FinishingStacks[i] = p.FinalChips
		hand.Players[i] = p.DisplayName
	}

	for _, p := range ordered {
		hand.Actions = append(hand.Actions, phh.DealHole(playerNum[p.Seat], holeCardsFor(rec, p.Seat)))
	}

	// Replay the betting with per-street contributions so raises carry
	// the PHH bet-to amount rather than the chips pushed.
	contrib := map[int]int{
		ordered[0].Seat: rec.SmallBlind,
		ordered[1].Seat: rec.BigBlind,
	}
	high := rec.BigBlind
	street := "preflop"
	boardShown := 0
	folded := make(map[int]bool)

	for _, a := range rec.Actions {
		if a.Street != street {
			street = a.Street
			boardShown = dealBoardTo(hand, rec.Board, boardShown, boardLenFor(street))
			contrib = map[int]int{}
			high = 0
		}
		num, ok := playerNum[a.Seat]
		if !ok {
			return nil, fmt.Errorf("action by undealt seat %d", a.Seat)
		}
		switch a.Action {
		case "fold":
			folded[a.Seat] = true
			hand.Actions = append(hand.Actions, phh.Fold(num))
		case "check", "call":
			contrib[a.Seat] += a.Amount
			hand.Actions = append(hand.Actions, phh.CheckCall(num))
		case "bet", "raise":
			contrib[a.Seat] += a.Amount
			high = contrib[a.Seat]
			hand.Actions = append(hand.Actions, phh.CompletionBetRaise(num, contrib[a.Seat]))
		case "allin":
			contrib[a.Seat] += a.Amount
			if contrib[a.Seat] > high {
				high = contrib[a.Seat]
				hand.Actions = append(hand.Actions, phh.CompletionBetRaise(num, contrib[a.Seat]))
			} else {
				hand.Actions = append(hand.Actions, phh.CheckCall(num))
			}
		default:
			return nil, fmt.Errorf("unknown action %q", a.Action)
		}
	}

	// Board cards past the last betting street come from an all-in runout.
	dealBoardTo(hand, rec.Board, boardShown, len(rec.Board))

	if len(rec.Board) == 5 {
		live := 0
		for _, p := range ordered {
			if !folded[p.Seat] {
				live++
			}
		}
		if live >= 2 {
			for _, p := range ordered {
				if !folded[p.Seat] {
					hand.Actions = append(hand.Actions, phh.ShowMuck(playerNum[p.Seat], holeCardsFor(rec, p.Seat)))
				}
			}
		}
	}
	return hand, nil
}

// orderFromSmallBlind rotates the seat-ordered player list so the small
// blind leads. Heads-up the button posts the small blind.
func orderFromSmallBlind(players []PlayerRecord, dealerSeat int) []PlayerRecord {
	dealerIdx := 0
	for i, p := range players {
		if p.Seat == dealerSeat {
			dealerIdx = i
		}
	}
	start := (dealerIdx + 1) % len(players)
	if len(players) == 2 {
		start = dealerIdx
	}
	out := make([]PlayerRecord, 0, len(players))
	for i := 0; i < len(players); i++ {
		out = append(out, players[(start+i)%len(players)])
	}
	return out
}

func holeCardsFor(rec *HandRecord, seat int) []string {
	for _, p := range rec.Players {
		if p.Seat == seat {
			return p.HoleCards
		}
	}
	return nil
}

// boardLenFor maps a street name to the community cards visible on it.
func boardLenFor(street string) int {
	switch street {
	case "flop":
		return 3
	case "turn":
		return 4
	case "river":
		return 5
	}
	return 0
}

// dealBoardTo appends board-deal actions up to the target length and
// returns the new shown count.
func dealBoardTo(hand *phh.Hand, board []string, shown, target int) int {
	if target > len(board) {
		target = len(board)
	}
	for shown < target {
		next := shown + 1
		if shown < 3 {
			next = 3
		}
		hand.Actions = append(hand.Actions, phh.DealBoard(board[shown:next]))
		shown = next
	}
	return shown
}
