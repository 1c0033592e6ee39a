package server

import (
	"encoding/json"
	"time"
)

// MessageType identifies a websocket event. The set is closed: unknown types
// from clients are logged and dropped.
type MessageType string

const (
	// Client to server messages
	MessageTypeAuth      MessageType = "auth"
	MessageTypeJoin      MessageType = "table:join"
	MessageTypeSpectate  MessageType = "table:spectate"
	MessageTypeLeave     MessageType = "table:leave"
	MessageTypeAction    MessageType = "player:action"
	MessageTypeEarlyFold MessageType = "player:early_fold"
	MessageTypeSetChips  MessageType = "debug:set_chips"

	// Server to client messages
	MessageTypeAuthOK         MessageType = "auth:ok"
	MessageTypeError          MessageType = "error"
	MessageTypeTableJoined    MessageType = "table:joined"
	MessageTypeTableChange    MessageType = "table:change"
	MessageTypeTableLeft      MessageType = "table:left"
	MessageTypeTableBusted    MessageType = "table:busted"
	MessageTypeHoleCards      MessageType = "game:hole_cards"
	MessageTypeGameState      MessageType = "game:state"
	MessageTypeActionRequired MessageType = "game:action_required"
	MessageTypeActionTaken    MessageType = "game:action_taken"
	MessageTypeShowdown       MessageType = "game:showdown"
	MessageTypeHandComplete   MessageType = "game:hand_complete"
)

// String returns the wire form of the message type.
func (mt MessageType) String() string {
	return string(mt)
}

// Message is the envelope for every websocket frame in both directions.
// Timestamp is unix milliseconds at send time.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewMessage wraps a payload in an envelope stamped with now.
func NewMessage(messageType MessageType, data any, now time.Time) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: now.UnixMilli(),
	}, nil
}

// Client → Server payloads

type AuthData struct {
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef,omitempty"`
	AdminToken  string `json:"adminToken,omitempty"`
}

type JoinTableData struct {
	TableID       string `json:"tableId,omitempty"`
	PreferredSeat *int   `json:"preferredSeat,omitempty"`
	BuyIn         int    `json:"buyIn,omitempty"`
}

type SpectateTableData struct {
	TableID string `json:"tableId"`
}

type LeaveTableData struct {
	TableID string `json:"tableId"`
}

type PlayerActionData struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
	Amount  int    `json:"amount,omitempty"`
}

type EarlyFoldData struct {
	TableID string `json:"tableId"`
}

type SetChipsData struct {
	TableID  string `json:"tableId"`
	PlayerID string `json:"playerId"`
	Chips    int    `json:"chips"`
}

// Server → Client payloads

type AuthOKData struct {
	PlayerID string `json:"playerId"`
}

type ErrorData struct {
	Message string `json:"message"`
}

type TableJoinedData struct {
	TableID string `json:"tableId"`
	Seat    int    `json:"seat"`
}

type TableChangeData struct {
	TableID string `json:"tableId"`
	Seat    int    `json:"seat"`
}

type TableLeftData struct {
	TableID string `json:"tableId"`
}

type TableBustedData struct {
	Message string `json:"message"`
}

type HoleCardsData struct {
	Cards []string `json:"cards"`
}

type GameStateData struct {
	State ClientGameState `json:"state"`
}

type ValidActionData struct {
	Action    string `json:"action"`
	MinAmount int    `json:"minAmount"`
	MaxAmount int    `json:"maxAmount"`
}

type ActionRequiredData struct {
	PlayerID     string            `json:"playerId"`
	ValidActions []ValidActionData `json:"validActions"`
	TimeoutMs    int               `json:"timeoutMs"`
}

type ActionTakenData struct {
	PlayerID string `json:"playerId"`
	Action   string `json:"action"`
	Amount   int    `json:"amount"`
}

type ShowdownWinner struct {
	PlayerID string   `json:"playerId"`
	Amount   int      `json:"amount"`
	HandName string   `json:"handName"`
	Cards    []string `json:"cards"`
}

type ShowdownHand struct {
	SeatIndex int      `json:"seatIndex"`
	PlayerID  string   `json:"playerId"`
	Cards     []string `json:"cards"`
	HandName  string   `json:"handName,omitempty"`
}

type ShowdownData struct {
	Winners []ShowdownWinner `json:"winners"`
	Players []ShowdownHand   `json:"players"`
}

type HandCompleteWinner struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
	HandName string `json:"handName,omitempty"`
}

type HandCompleteData struct {
	Winners []HandCompleteWinner `json:"winners"`
	Rake    int                  `json:"rake"`
}

// ClientGameState is the projection of the engine state sent to clients.
// Hole cards other than the viewer's own are omitted; spectators receive
// every seat's cards.
type ClientGameState struct {
	TableID           string          `json:"tableId"`
	Players           []*ClientPlayer `json:"players"`
	CommunityCards    []string        `json:"communityCards"`
	Pot               int             `json:"pot"`
	SidePots          []ClientSidePot `json:"sidePots,omitempty"`
	CurrentStreet     string          `json:"currentStreet"`
	DealerSeat        int             `json:"dealerSeat"`
	CurrentPlayerSeat int             `json:"currentPlayerSeat"`
	CurrentBet        int             `json:"currentBet"`
	MinRaise          int             `json:"minRaise"`
	SmallBlind        int             `json:"smallBlind"`
	BigBlind          int             `json:"bigBlind"`
	IsHandInProgress  bool            `json:"isHandInProgress"`
	ActionTimeoutAt   int64           `json:"actionTimeoutAt,omitempty"`
	ActionTimeoutMs   int             `json:"actionTimeoutMs,omitempty"`
}

// ClientPlayer is one seat in the projection. A nil entry in
// ClientGameState.Players is an empty seat.
type ClientPlayer struct {
	Seat               int      `json:"seat"`
	PlayerID           string   `json:"playerId"`
	DisplayName        string   `json:"displayName"`
	AvatarRef          string   `json:"avatarRef,omitempty"`
	Position           string   `json:"position,omitempty"`
	Chips              int      `json:"chips"`
	CurrentBet         int      `json:"currentBet"`
	TotalBet           int      `json:"totalBet"`
	HoleCards          []string `json:"holeCards,omitempty"`
	Folded             bool     `json:"folded"`
	IsAllIn            bool     `json:"isAllIn"`
	IsConnected        bool     `json:"isConnected"`
	WaitingForNextHand bool     `json:"waitingForNextHand"`
}

type ClientSidePot struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"`
}
