package phh_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okihara/plo-game-sub001/internal/phh"
)

func TestActionLines(t *testing.T) {
	assert.Equal(t, "d dh p1 AsKdTh2c", phh.DealHole(1, []string{"As", "Kd", "Th", "2c"}))
	assert.Equal(t, "d db 7h8h9h", phh.DealBoard([]string{"7h", "8h", "9h"}))
	assert.Equal(t, "p3 f", phh.Fold(3))
	assert.Equal(t, "p2 cc", phh.CheckCall(2))
	assert.Equal(t, "p1 cbr 12", phh.CompletionBetRaise(1, 12))
	assert.Equal(t, "p2 sm QcQdJsJh", phh.ShowMuck(2, []string{"Qc", "Qd", "Js", "Jh"}))
}

func TestEncodeHand(t *testing.T) {
	hand := &phh.Hand{
		Variant:           phh.VariantPLO,
		Antes:             []int{0, 0, 0},
		BlindsOrStraddles: []int{1, 2, 0},
		MinBet:            2,
		StartingStacks:    []int{200, 200, 200},
		FinishingStacks:   []int{199, 198, 203},
		Actions: []string{
			"d dh p1 AhKhQh2h",
			"d dh p2 7c2d8s9s",
			"d dh p3 QsJsTs9d",
			"p3 cbr 7",
			"p1 f",
			"p2 f",
		},
		Players:  []string{"alice", "bob", "carol"},
		HandID:   "01JCZX4R8NT5Q2W7E9Y0B3D6F1",
		Table:    "main-1",
		Time:     "15:22:00",
		TimeZone: "UTC",
	}

	var buf bytes.Buffer
	require.NoError(t, phh.Encode(&buf, hand))

	want := "" +
		"variant = \"PLO\"\n" +
		"antes = [0, 0, 0]\n" +
		"blinds_or_straddles = [1, 2, 0]\n" +
		"min_bet = 2\n" +
		"starting_stacks = [200, 200, 200]\n" +
		"finishing_stacks = [199, 198, 203]\n" +
		"actions = [\"d dh p1 AhKhQh2h\", \"d dh p2 7c2d8s9s\", \"d dh p3 QsJsTs9d\", \"p3 cbr 7\", \"p1 f\", \"p2 f\"]\n" +
		"players = [\"alice\", \"bob\", \"carol\"]\n" +
		"hand = \"01JCZX4R8NT5Q2W7E9Y0B3D6F1\"\n" +
		"table = \"main-1\"\n" +
		"time = \"15:22:00\"\n" +
		"time_zone = \"UTC\"\n"
	assert.Equal(t, want, buf.String())
}

func TestEncodeNil(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, phh.Encode(&buf, nil))
}
