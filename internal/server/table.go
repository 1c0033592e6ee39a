package server

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/okihara/plo-game-sub001/internal/deck"
	"github.com/okihara/plo-game-sub001/internal/game"
	"github.com/okihara/plo-game-sub001/internal/gameid"
	"github.com/okihara/plo-game-sub001/internal/metrics"
	"github.com/okihara/plo-game-sub001/internal/server/history"
)

// Pacing and sizing constants. These are part of the client protocol; the
// delays exist so clients can animate between authoritative states.
const (
	MinPlayersToStart     = 3
	DefaultBuyInBigBlinds = 200

	ActionTimeout         = 20 * time.Second
	ActionAnimationDelay  = 1200 * time.Millisecond
	StreetTransitionDelay = 800 * time.Millisecond
	ShowdownDelay         = 2 * time.Second
	HandCompleteDelay     = 2 * time.Second
	NextHandDelay         = 2 * time.Second
	NextHandShowdownDelay = 5 * time.Second
	RunoutStreetDelay     = 1500 * time.Millisecond

	// The last card gets a longer pause.
	runoutRiverDelay = RunoutStreetDelay * 3 / 2

	equitySamples = 2000
	equityWorkers = 4
)

// Phase is the table's position in the hand lifecycle. Inputs that are not
// legal in the current phase are rejected, never queued.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingAction
	PhaseAnimatingStreet
	PhaseRunningOut
	PhaseCompleting
	PhaseBetweenHands
)

var phaseNames = [...]string{"idle", "awaiting_action", "animating_street", "running_out", "completing", "between_hands"}

func (p Phase) String() string {
	if p < PhaseIdle || p > PhaseBetweenHands {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// PendingAction tracks the one outstanding turn request.
type PendingAction struct {
	Seat         int
	PlayerID     string
	DisplayName  string
	ValidActions []game.ValidAction
	RequestedAt  time.Time
	Timeout      time.Duration
}

// TableHooks let the surrounding router react to fast-fold events. Hooks are
// invoked on fresh goroutines, never under the table lock, so they may call
// back into any table.
type TableHooks struct {
	// Folded fires after a fast-fold seat folds while still connected, so
	// the router can reseat the player at another table.
	Folded func(tableID, playerID string)
	// TimeoutFold fires when the action timer folds a fast-fold seat.
	TimeoutFold func(tableID, playerID string)
	// Reassign fires between hands on a fast-fold table instead of starting
	// the next hand. The router redistributes the listed players and
	// triggers hand starts itself.
	Reassign func(tableID string, playerIDs []string)
}

// TableOptions configures a new table. Logger, Clock, Metrics, and Rand are
// required; Recorder may be nil to disable hand history.
type TableOptions struct {
	ID         string
	SmallBlind int
	BigBlind   int
	BuyIn      int // 0 means DefaultBuyInBigBlinds * BigBlind
	FastFold   bool

	Logger   *log.Logger
	Clock    quartz.Clock
	Metrics  *metrics.Metrics
	Recorder *history.Recorder
	Rand     *rand.Rand
	Hooks    TableHooks
}

// Table is the authoritative state machine for one PLO table. All mutation
// happens under mu; timer callbacks re-enter through the same lock and carry
// a generation token so cancelled schedules are no-ops.
type Table struct {
	id         string
	smallBlind int
	bigBlind   int
	buyIn      int
	fastFold   bool

	logger   *log.Logger
	clock    quartz.Clock
	metrics  *metrics.Metrics
	recorder *history.Recorder
	hooks    TableHooks

	mu   sync.Mutex
	rng  *rand.Rand
	room *Broadcaster

	seats      SeatList
	spectators map[string]bool

	phase  Phase
	paused bool

	state         *game.State
	dealer        int
	handID        string
	handStartedAt time.Time
	startingChips [MaxPlayers]int

	pending           *PendingAction
	pendingEarlyFolds map[int]string

	reachedShowdown          bool
	showdownSentDuringRunOut bool
	allInEV                  map[int]int

	generation  uint64
	actionTimer *quartz.Timer
	delayTimer  *quartz.Timer
}

// NewTable creates an idle table.
func NewTable(opts TableOptions) *Table {
	if opts.BuyIn <= 0 {
		opts.BuyIn = DefaultBuyInBigBlinds * opts.BigBlind
	}
	logger := opts.Logger.WithPrefix("table").With("table_id", opts.ID)
	return &Table{
		id:                opts.ID,
		smallBlind:        opts.SmallBlind,
		bigBlind:          opts.BigBlind,
		buyIn:             opts.BuyIn,
		fastFold:          opts.FastFold,
		logger:            logger,
		clock:             opts.Clock,
		metrics:           opts.Metrics,
		recorder:          opts.Recorder,
		hooks:             opts.Hooks,
		rng:               opts.Rand,
		room:              NewBroadcaster(logger, opts.Clock, opts.Metrics),
		spectators:        make(map[string]bool),
		dealer:            -1,
		pendingEarlyFolds: make(map[int]string),
	}
}

// ID returns the table's identifier.
func (t *Table) ID() string { return t.id }

// IsFastFold reports whether this table participates in the fast-fold pool.
func (t *Table) IsFastFold() bool { return t.fastFold }

// Blinds returns the small and big blind.
func (t *Table) Blinds() (int, int) { return t.smallBlind, t.bigBlind }

// PlayerCount returns the number of occupied seats, sitting-out and waiting
// seats included.
func (t *Table) PlayerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seats.Count()
}

// SeatedPlayerIDs returns the ids of every seated player in seat order.
func (t *Table) SeatedPlayerIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []string
	t.seats.Each(func(_ int, s *Seat) {
		ids = append(ids, s.PlayerID)
	})
	return ids
}

// HandInProgress reports whether a hand is currently being played.
func (t *Table) HandInProgress() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handRunning()
}

// handRunning must be called with t.mu held.
func (t *Table) handRunning() bool {
	return t.phase != PhaseIdle && t.phase != PhaseBetweenHands
}

// SeatPlayer seats a player, binds their transport to the room, notifies the
// newcomer, and broadcasts the table state. It never starts a hand: the
// caller invokes TriggerMaybeStartHand once its own bookkeeping is done, so
// that table:joined always reaches the client before game:hole_cards.
// suppressJoined lets the fast-fold router replace table:joined with its own
// table:change.
func (t *Table) SeatPlayer(playerID, displayName, avatarRef string, transport Transport, buyIn, preferredSeat int, suppressJoined bool) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, _ := t.seats.Find(playerID); s != nil {
		return -1, fmt.Errorf("player %s already seated at table %s", playerID, t.id)
	}
	if buyIn <= 0 {
		buyIn = t.buyIn
	}
	seat := &Seat{
		PlayerID:           playerID,
		DisplayName:        displayName,
		AvatarRef:          avatarRef,
		Transport:          transport,
		Chips:              buyIn,
		BuyIn:              buyIn,
		WaitingForNextHand: t.handRunning(),
	}
	idx := t.seats.Seat(seat, preferredSeat)
	if idx == -1 {
		return -1, fmt.Errorf("table %s is full", t.id)
	}

	t.room.Join(playerID, transport)
	if t.metrics != nil {
		t.metrics.PlayersSeated.Inc()
	}
	t.logger.Info("player seated",
		"player", playerID, "seat", idx, "buy_in", buyIn,
		"waiting", seat.WaitingForNextHand)

	if !suppressJoined {
		t.room.Send(playerID, MessageTypeTableJoined, TableJoinedData{TableID: t.id, Seat: idx})
	}
	t.broadcastState(nil)
	return idx, nil
}

// TriggerMaybeStartHand starts a hand if the table is idle and has enough
// players.
func (t *Table) TriggerMaybeStartHand() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.phase == PhaseIdle {
		t.maybeStartHand()
	}
}

// SetPaused pauses or resumes hand starts. A running hand finishes normally.
func (t *Table) SetPaused(paused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paused = paused
	t.logger.Info("pause state changed", "paused", paused)
	if !paused && t.phase == PhaseIdle {
		t.maybeStartHand()
	}
}

// Close cancels every outstanding timer. Pending history writes are not
// awaited.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearTimers()
	t.phase = PhaseIdle
	t.state = nil
	t.pending = nil
}

// maybeStartHand must be called with t.mu held and phase Idle.
func (t *Table) maybeStartHand() {
	if t.paused {
		return
	}
	minPlayers := MinPlayersToStart
	if t.fastFold {
		minPlayers = MaxPlayers
	}
	if t.seats.Count() < minPlayers {
		return
	}
	t.startHand()
}

// startHand must be called with t.mu held.
func (t *Table) startHand() {
	base := game.NewState(0, t.smallBlind, t.bigBlind)
	base.Dealer = t.dealer

	dealt := 0
	for i := 0; i < MaxPlayers; i++ {
		seat := t.seats.Get(i)
		p := &base.Players[i]
		if seat == nil {
			p.SittingOut = true
			continue
		}
		seat.WaitingForNextHand = false
		if seat.Chips <= 0 || seat.LeftForFastFold || seat.Departed {
			p.SittingOut = true
			continue
		}
		p.DisplayName = seat.DisplayName
		p.Chips = seat.Chips
		t.startingChips[i] = seat.Chips
		dealt++
	}
	if dealt < 2 {
		return
	}

	ns, err := base.StartHand(deck.NewShuffled(t.rng))
	if err != nil {
		t.logger.Error("failed to start hand", "error", err)
		return
	}

	t.state = ns
	t.dealer = ns.Dealer
	t.handID = gameid.New()
	t.handStartedAt = t.clock.Now()
	t.reachedShowdown = false
	t.showdownSentDuringRunOut = false
	t.allInEV = nil
	t.pendingEarlyFolds = make(map[int]string)
	if t.metrics != nil {
		t.metrics.HandsStarted.Inc()
	}
	t.logger.Info("hand started",
		"hand_id", t.handID, "dealer", ns.Dealer, "players", dealt)

	for i := range ns.Players {
		p := &ns.Players[i]
		if !p.InHand() {
			continue
		}
		seat := t.seats.Get(i)
		if seat == nil {
			continue
		}
		t.room.Send(seat.PlayerID, MessageTypeHoleCards, HoleCardsData{Cards: deck.Codes(p.HoleCards)})
	}

	if ns.HandComplete {
		// The blinds alone put everyone all in; animate the whole board.
		t.beginRunout(0, game.Preflop)
		return
	}
	t.phase = PhaseAwaitingAction
	t.requestNextAction()
	t.broadcastState(nil)
}

// after schedules fn on the table actor. The callback re-acquires the lock
// and checks its generation token, so timers cancelled by clearTimers fire
// as no-ops even if already in flight.
func (t *Table) after(d time.Duration, fn func()) *quartz.Timer {
	gen := t.generation
	return t.clock.AfterFunc(d, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if gen != t.generation {
			return
		}
		fn()
	})
}

// clearTimers must be called with t.mu held.
func (t *Table) clearTimers() {
	t.generation++
	if t.actionTimer != nil {
		t.actionTimer.Stop()
		t.actionTimer = nil
	}
	if t.delayTimer != nil {
		t.delayTimer.Stop()
		t.delayTimer = nil
	}
}

// invariantBreach is the last-resort recovery for states that should be
// unreachable: log everything, drop the hand, and return the table to a
// consistent idle state rather than crash the process.
func (t *Table) invariantBreach(msg string, keyvals ...any) {
	args := append([]any{
		"hand_id", t.handID,
		"phase", t.phase.String(),
	}, keyvals...)
	t.logger.Error("invariant breach: "+msg, args...)
	t.clearTimers()
	t.state = nil
	t.pending = nil
	t.pendingEarlyFolds = make(map[int]string)
	t.phase = PhaseIdle
}

// playerIDAt returns the id of the seat's occupant, empty when vacated.
func (t *Table) playerIDAt(seat int) string {
	if s := t.seats.Get(seat); s != nil {
		return s.PlayerID
	}
	return ""
}

// Unseat removes a player. Mid-hand the departure folds them: immediately
// when they are the acting player, otherwise as a deferred fold when their
// turn arrives, so the table never reveals early that their cards were dead.
func (t *Table) Unseat(playerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	seat, idx := t.seats.Find(playerID)
	if seat == nil {
		return fmt.Errorf("player %s not seated at table %s", playerID, t.id)
	}

	t.room.Send(playerID, MessageTypeTableLeft, TableLeftData{TableID: t.id})
	t.room.Leave(playerID)
	seat.Transport = nil

	if t.dealtThisHand(idx) {
		seat.Departed = true
		t.resolveDeparture(idx, playerID)
		return nil
	}
	t.seats.Release(idx)
	if t.metrics != nil {
		t.metrics.PlayersSeated.Dec()
	}
	t.logger.Info("player unseated", "player", playerID, "seat", idx)
	t.broadcastState(nil)
	return nil
}

// UnseatForFastFold is the quiet variant used by the router when migrating a
// player: no table:left, and the seat stays visible (marked LeftForFastFold)
// until the hand ends. It returns the player's current stack so the router
// can reseat them with it.
func (t *Table) UnseatForFastFold(playerID string) (*Seat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seat, idx := t.seats.Find(playerID)
	if seat == nil {
		return nil, fmt.Errorf("player %s not seated at table %s", playerID, t.id)
	}

	transport := seat.Transport
	t.room.Leave(playerID)
	seat.Transport = nil

	chips := seat.Chips
	if t.handRunning() && t.state != nil && t.state.Players[idx].InHand() {
		chips = t.state.Players[idx].Chips
	}
	snapshot := &Seat{
		PlayerID:    seat.PlayerID,
		DisplayName: seat.DisplayName,
		AvatarRef:   seat.AvatarRef,
		Transport:   transport,
		Chips:       chips,
		BuyIn:       seat.BuyIn,
	}

	if t.dealtThisHand(idx) {
		seat.LeftForFastFold = true
		t.resolveDeparture(idx, playerID)
		return snapshot, nil
	}
	t.seats.Release(idx)
	if t.metrics != nil {
		t.metrics.PlayersSeated.Dec()
	}
	t.broadcastState(nil)
	return snapshot, nil
}

// Detach records a lost connection without a table:leave. Between hands the
// seat is released; mid-hand it stays and is silent-folded on its turns,
// then released at hand completion.
func (t *Table) Detach(playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spectators[playerID] {
		delete(t.spectators, playerID)
		t.room.Leave(playerID)
		if t.metrics != nil {
			t.metrics.SpectatorsWatching.Dec()
		}
		return
	}
	seat, idx := t.seats.Find(playerID)
	if seat == nil {
		return
	}
	t.room.Leave(playerID)
	seat.Transport = nil
	t.logger.Info("player disconnected", "player", playerID, "seat", idx)

	if !t.handRunning() {
		t.seats.Release(idx)
		if t.metrics != nil {
			t.metrics.PlayersSeated.Dec()
		}
		t.broadcastState(nil)
		return
	}
	if t.pending != nil && t.pending.Seat == idx && t.phase == PhaseAwaitingAction {
		t.silentFold(idx)
	}
	t.broadcastState(nil)
}

// dealtThisHand must be called with t.mu held: the seat was dealt into the
// running hand, folded or not. Such seats stay occupied until completion so
// displays and the history record keep their identity.
func (t *Table) dealtThisHand(idx int) bool {
	if !t.handRunning() || t.state == nil || t.state.HandComplete {
		return false
	}
	return t.state.Players[idx].InHand()
}

// resolveDeparture must be called with t.mu held, after the seat has been
// marked departed or left-for-fast-fold. A seat still contesting the pot is
// folded now or when its turn comes; folded and all-in seats have nothing
// left to decide.
func (t *Table) resolveDeparture(idx int, playerID string) {
	p := &t.state.Players[idx]
	if !p.Folded && !p.AllIn {
		if t.pending != nil && t.pending.Seat == idx && t.phase == PhaseAwaitingAction {
			t.silentFold(idx)
			return
		}
		t.pendingEarlyFolds[idx] = playerID
	}
	t.broadcastState(nil)
}

// AnnounceTableChange tells a freshly migrated player which table and seat
// they now occupy; the fast-fold router uses it in place of table:joined.
func (t *Table) AnnounceTableChange(playerID string, seat int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.room.Send(playerID, MessageTypeTableChange, TableChangeData{TableID: t.id, Seat: seat})
}

// SetChips is the admin override for a player's stack. It is rejected while
// a hand is running: in-hand chip totals are conserved.
func (t *Table) SetChips(playerID string, chips int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handRunning() {
		return fmt.Errorf("table %s: cannot set chips during a hand", t.id)
	}
	seat, idx := t.seats.Find(playerID)
	if seat == nil {
		return fmt.Errorf("player %s not seated at table %s", playerID, t.id)
	}
	if chips < 0 {
		return fmt.Errorf("chips must be non-negative, got %d", chips)
	}
	old := seat.Chips
	seat.Chips = chips
	t.logger.Warn("admin chip override", "player", playerID, "seat", idx, "from", old, "to", chips)
	t.broadcastState(nil)
	return nil
}
