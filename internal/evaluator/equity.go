package evaluator

import (
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/okihara/plo-game-sub001/internal/deck"
)

// Contender is a player holding cards when a runout begins. Folded
// contenders win nothing but their cards are dead and never reappear on the
// sampled boards.
type Contender struct {
	Seat   int
	Hole   []deck.Card
	Folded bool
}

// Pot is a pot layer and the seats eligible to win it.
type Pot struct {
	Amount   int
	Eligible []int
}

// ExpectedWinnings estimates each live contender's expected chips from the
// given pots by completing the board samples times with a PRNG seeded from
// seed. With a full board it computes the exact split in a single pass.
// Every live seat appears in the result, with zero for certain losers.
func ExpectedWinnings(contenders []Contender, board []deck.Card, pots []Pot, samples int, seed int64) (map[int]int, error) {
	if err := validateRunout(contenders, board); err != nil {
		return nil, err
	}
	if len(board) == 5 {
		totals, err := simulateWinnings(contenders, board, pots, 1, rand.New(rand.NewSource(seed)))
		if err != nil {
			return nil, err
		}
		return roundWinnings(totals, 1), nil
	}
	if samples <= 0 {
		return nil, fmt.Errorf("samples must be positive, got %d", samples)
	}
	totals, err := simulateWinnings(contenders, board, pots, samples, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	return roundWinnings(totals, samples), nil
}

// ExpectedWinningsParallel shards the samples across workers. Results are
// deterministic for a fixed (seed, samples, workers) triple.
func ExpectedWinningsParallel(contenders []Contender, board []deck.Card, pots []Pot, samples int, seed int64, workers int) (map[int]int, error) {
	if workers <= 1 || len(board) == 5 {
		return ExpectedWinnings(contenders, board, pots, samples, seed)
	}
	if err := validateRunout(contenders, board); err != nil {
		return nil, err
	}
	if samples <= 0 {
		return nil, fmt.Errorf("samples must be positive, got %d", samples)
	}
	if workers > samples {
		workers = samples
	}

	results := make([]map[int]float64, workers)
	per := samples / workers
	extra := samples % workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		n := per
		if w < extra {
			n++
		}
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(w)*7919))
			totals, err := simulateWinnings(contenders, board, pots, n, rng)
			if err != nil {
				return err
			}
			results[w] = totals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[int]float64)
	for _, totals := range results {
		for seat, amount := range totals {
			merged[seat] += amount
		}
	}
	return roundWinnings(merged, samples), nil
}

func validateRunout(contenders []Contender, board []deck.Card) error {
	if len(board) > 5 {
		return fmt.Errorf("board has %d cards, max 5", len(board))
	}
	live := 0
	for _, c := range contenders {
		if c.Folded {
			continue
		}
		live++
		if len(c.Hole) != 4 {
			return fmt.Errorf("seat %d has %d hole cards, want 4", c.Seat, len(c.Hole))
		}
	}
	if live == 0 {
		return fmt.Errorf("no live contenders")
	}
	return nil
}

// simulateWinnings returns total (not averaged) winnings per live seat over
// n sampled board completions.
func simulateWinnings(contenders []Contender, board []deck.Card, pots []Pot, n int, rng *rand.Rand) (map[int]float64, error) {
	used := make(map[deck.Card]bool)
	for _, c := range contenders {
		for _, card := range c.Hole {
			used[card] = true
		}
	}
	for _, card := range board {
		used[card] = true
	}

	full := deck.New()
	available := make([]deck.Card, 0, deck.Size-len(used))
	for _, card := range full.Deal(deck.Size) {
		if !used[card] {
			available = append(available, card)
		}
	}

	missing := 5 - len(board)
	if missing > len(available) {
		return nil, fmt.Errorf("not enough undealt cards to complete the board")
	}

	totals := make(map[int]float64)
	ranks := make(map[int]HandRank)
	for _, c := range contenders {
		if !c.Folded {
			totals[c.Seat] = 0
		}
	}

	fullBoard := make([]deck.Card, 5)
	copy(fullBoard, board)
	winners := make([]int, 0, len(contenders))

	for s := 0; s < n; s++ {
		for i := 0; i < missing; i++ {
			j := i + rng.Intn(len(available)-i)
			available[i], available[j] = available[j], available[i]
			fullBoard[len(board)+i] = available[i]
		}

		for _, c := range contenders {
			if c.Folded {
				continue
			}
			r, err := EvaluateOmaha(c.Hole, fullBoard)
			if err != nil {
				return nil, err
			}
			ranks[c.Seat] = r
		}

		for _, pot := range pots {
			var best HandRank
			winners = winners[:0]
			for _, seat := range pot.Eligible {
				r, ok := ranks[seat]
				if !ok {
					continue
				}
				if r > best {
					best = r
					winners = winners[:0]
					winners = append(winners, seat)
				} else if r == best {
					winners = append(winners, seat)
				}
			}
			if len(winners) == 0 {
				continue
			}
			share := float64(pot.Amount) / float64(len(winners))
			for _, w := range winners {
				totals[w] += share
			}
		}
	}

	return totals, nil
}

func roundWinnings(totals map[int]float64, samples int) map[int]int {
	out := make(map[int]int, len(totals))
	for seat, total := range totals {
		out[seat] = int(math.Round(total / float64(samples)))
	}
	return out
}
