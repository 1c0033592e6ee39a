package game

import (
	"slices"
	"testing"

	"github.com/okihara/plo-game-sub001/internal/deck"
)

// potPlayer builds a player with dealt-in hole cards for layering tests.
func potPlayer(total int, folded bool) Player {
	d := deck.New()
	return Player{Chips: 100, HoleCards: d.Deal(4), TotalBet: total, Folded: folded}
}

func TestSidePotsFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		players []Player
		want    []SidePot
	}{
		{
			name:    "no contributions",
			players: []Player{potPlayer(0, false), potPlayer(0, false)},
			want:    nil,
		},
		{
			name:    "equal totals build one pot",
			players: []Player{potPlayer(100, false), potPlayer(100, false), potPlayer(100, false)},
			want:    []SidePot{{Amount: 300, Eligible: []int{0, 1, 2}}},
		},
		{
			name: "three-way all-in layers by stack",
			players: []Player{
				potPlayer(50, false),
				potPlayer(100, false),
				potPlayer(200, false),
			},
			want: []SidePot{
				{Amount: 150, Eligible: []int{0, 1, 2}},
				{Amount: 100, Eligible: []int{1, 2}},
				{Amount: 100, Eligible: []int{2}},
			},
		},
		{
			name: "folded chips stay in without eligibility",
			players: []Player{
				potPlayer(100, true),
				potPlayer(100, false),
				potPlayer(100, false),
			},
			want: []SidePot{{Amount: 300, Eligible: []int{1, 2}}},
		},
		{
			name: "folded partial contribution merges into the lowest layer",
			players: []Player{
				potPlayer(40, true),
				potPlayer(140, false),
				potPlayer(90, false),
			},
			want: []SidePot{
				{Amount: 220, Eligible: []int{1, 2}},
				{Amount: 50, Eligible: []int{1}},
			},
		},
		{
			name: "sitting out seats are ignored",
			players: []Player{
				potPlayer(60, false),
				{SittingOut: true},
				potPlayer(60, false),
			},
			want: []SidePot{{Amount: 120, Eligible: []int{0, 2}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := SidePotsFor(tt.players)
			if len(got) != len(tt.want) {
				t.Fatalf("SidePotsFor = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i].Amount != tt.want[i].Amount || !slices.Equal(got[i].Eligible, tt.want[i].Eligible) {
					t.Errorf("pot[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}

			sum := 0
			for i := range tt.players {
				sum += tt.players[i].TotalBet
			}
			layered := 0
			for _, pot := range got {
				layered += pot.Amount
			}
			if layered != sum {
				t.Errorf("layered %d chips, players contributed %d", layered, sum)
			}
		})
	}
}
