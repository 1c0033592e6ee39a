// Package history persists completed hands. Recording is fire and forget: a
// bounded queue feeds a single writer goroutine, and a sink that keeps
// failing is disabled rather than allowed to stall tables.
package history

import "time"

// HandRecord is the persisted form of one completed hand. The schema is
// opaque to the table core; sinks store it as a single JSON document.
type HandRecord struct {
	HandID     string    `json:"handId"`
	TableID    string    `json:"tableId"`
	SmallBlind int       `json:"smallBlind"`
	BigBlind   int       `json:"bigBlind"`
	PlayedAt   time.Time `json:"playedAt"`
	DealerSeat int       `json:"dealerSeat"`

	Board   []string       `json:"board"`
	Actions []ActionEntry  `json:"actions"`
	Players []PlayerRecord `json:"players"`
	Winners []WinnerRecord `json:"winners"`

	// Reserved; no rake model is applied.
	Rake int `json:"rake"`
}

// ActionEntry is one line of the hand's action log. Amount is the chips the
// action pushed.
type ActionEntry struct {
	Seat   int    `json:"seat"`
	Action string `json:"action"`
	Amount int    `json:"amount"`
	Street string `json:"street"`
}

// PlayerRecord snapshots one dealt seat at hand completion. AllInEVProfit is
// set only for hands decided by an all-in runout.
type PlayerRecord struct {
	Seat          int      `json:"seat"`
	PlayerID      string   `json:"playerId"`
	DisplayName   string   `json:"displayName"`
	StartingChips int      `json:"startingChips"`
	HoleCards     []string `json:"holeCards"`
	FinalChips    int      `json:"finalChips"`
	Profit        int      `json:"profit"`
	AllInEVProfit *int     `json:"allInEvProfit,omitempty"`
}

// WinnerRecord is one seat's share of the pot.
type WinnerRecord struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
	HandName string `json:"handName,omitempty"`
}
