// Package phh encodes completed hands in the Poker Hand History (PHH)
// file format, one TOML document per hand. Player numbering follows the
// PHH convention: p1 is the small blind and the button acts last.
package phh

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
)

// VariantPLO is the PHH variant code for pot-limit Omaha hold'em.
const VariantPLO = "PLO"

// Hand is one hand in PHH form. Slice fields are indexed by player
// number minus one.
type Hand struct {
	Variant           string   `toml:"variant"`
	Antes             []int    `toml:"antes"`
	BlindsOrStraddles []int    `toml:"blinds_or_straddles"`
	MinBet            int      `toml:"min_bet"`
	StartingStacks    []int    `toml:"starting_stacks"`
	FinishingStacks   []int    `toml:"finishing_stacks,omitempty"`
	Actions           []string `toml:"actions"`
	Players           []string `toml:"players,omitempty"`
	HandID            string   `toml:"hand"`
	Table             string   `toml:"table,omitempty"`
	Time              string   `toml:"time,omitempty"`
	TimeZone          string   `toml:"time_zone,omitempty"`
}

// Encode writes the hand as a PHH TOML document.
func Encode(w io.Writer, hand *Hand) error {
	if hand == nil {
		return fmt.Errorf("phh: hand is nil")
	}
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(hand)
}

// EncodeToBytes encodes and returns the document as bytes.
func EncodeToBytes(hand *Hand) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, hand); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DealHole is the action line for dealing a player's hole cards.
func DealHole(player int, cards []string) string {
	return fmt.Sprintf("d dh p%d %s", player, strings.Join(cards, ""))
}

// DealBoard is the action line for dealing community cards.
func DealBoard(cards []string) string {
	return "d db " + strings.Join(cards, "")
}

// Fold is the action line for a fold.
func Fold(player int) string {
	return fmt.Sprintf("p%d f", player)
}

// CheckCall is the action line for a check or a call.
func CheckCall(player int) string {
	return fmt.Sprintf("p%d cc", player)
}

// CompletionBetRaise is the action line for a bet or raise. The amount is
// the total the player is in for on the street, not the increment.
func CompletionBetRaise(player, to int) string {
	return fmt.Sprintf("p%d cbr %d", player, to)
}

// ShowMuck is the action line for revealing hole cards at showdown.
func ShowMuck(player int, cards []string) string {
	return fmt.Sprintf("p%d sm %s", player, strings.Join(cards, ""))
}
