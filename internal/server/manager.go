package server

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/okihara/plo-game-sub001/internal/metrics"
	"github.com/okihara/plo-game-sub001/internal/server/history"
)

// Manager owns the table registry and the fast-fold reseat pool. Tables call
// back into it only through hooks on fresh goroutines, so the manager may
// hold its own lock while driving any table.
type Manager struct {
	logger   *log.Logger
	clock    quartz.Clock
	metrics  *metrics.Metrics
	recorder *history.Recorder

	mu     sync.Mutex
	tables map[string]*Table
	order  []string // config order, for stable listings
}

// NewManager builds every configured table. Fast-fold tables share one
// reseat pool.
func NewManager(cfg *Config, logger *log.Logger, clock quartz.Clock, m *metrics.Metrics, recorder *history.Recorder, rng *rand.Rand) *Manager {
	mgr := &Manager{
		logger:   logger.WithPrefix("manager"),
		clock:    clock,
		metrics:  m,
		recorder: recorder,
		tables:   make(map[string]*Table),
	}
	hooks := TableHooks{
		Folded:      mgr.onFastFold,
		TimeoutFold: mgr.onFastFold,
		Reassign:    mgr.onReassign,
	}
	for _, tc := range cfg.Tables {
		t := NewTable(TableOptions{
			ID:         tc.Name,
			SmallBlind: tc.SmallBlind,
			BigBlind:   tc.BigBlind,
			BuyIn:      tc.BuyIn,
			FastFold:   tc.FastFold,
			Logger:     logger,
			Clock:      clock,
			Metrics:    m,
			Recorder:   recorder,
			Rand:       rand.New(rand.NewSource(rng.Int63())),
			Hooks:      hooks,
		})
		mgr.tables[tc.Name] = t
		mgr.order = append(mgr.order, tc.Name)
	}
	if m != nil {
		m.TablesActive.Set(float64(len(mgr.tables)))
	}
	return mgr
}

// Table looks up a table by id.
func (m *Manager) Table(id string) (*Table, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[id]
	return t, ok
}

// Tables returns every table in config order.
func (m *Manager) Tables() []*Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Table, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tables[id])
	}
	return out
}

// TableCount returns the number of tables.
func (m *Manager) TableCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables)
}

// Close shuts every table down.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tables {
		t.Close()
	}
}

// JoinTable seats a player. An empty tableID routes to the emptiest open
// regular table; when only fast-fold tables have room, the fullest one below
// capacity is chosen so it reaches its start threshold soonest.
func (m *Manager) JoinTable(playerID, displayName, avatarRef string, transport Transport, tableID string, preferredSeat, buyIn int) (string, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var t *Table
	if tableID != "" {
		var ok bool
		t, ok = m.tables[tableID]
		if !ok {
			return "", -1, fmt.Errorf("unknown table %s", tableID)
		}
	} else {
		t = m.pickTable()
		if t == nil {
			return "", -1, fmt.Errorf("no open table")
		}
	}

	seat, err := t.SeatPlayer(playerID, displayName, avatarRef, transport, buyIn, preferredSeat, false)
	if err != nil {
		return "", -1, err
	}
	t.TriggerMaybeStartHand()
	return t.ID(), seat, nil
}

// pickTable must be called with m.mu held.
func (m *Manager) pickTable() *Table {
	var regular, fastFold *Table
	for _, id := range m.order {
		t := m.tables[id]
		count := t.PlayerCount()
		if count >= MaxPlayers {
			continue
		}
		if t.IsFastFold() {
			if fastFold == nil || count > fastFold.PlayerCount() {
				fastFold = t
			}
			continue
		}
		if regular == nil || count < regular.PlayerCount() {
			regular = t
		}
	}
	if regular != nil {
		return regular
	}
	return fastFold
}

// LeaveTable removes a player from a table.
func (m *Manager) LeaveTable(playerID, tableID string) error {
	t, ok := m.Table(tableID)
	if !ok {
		return fmt.Errorf("unknown table %s", tableID)
	}
	return t.Unseat(playerID)
}

// Detach drops a lost connection from every table it touches.
func (m *Manager) Detach(playerID string) {
	for _, t := range m.Tables() {
		t.Detach(playerID)
	}
}

// Spectate attaches a session as a read-only watcher.
func (m *Manager) Spectate(playerID string, transport Transport, tableID string) error {
	t, ok := m.Table(tableID)
	if !ok {
		return fmt.Errorf("unknown table %s", tableID)
	}
	t.AddSpectator(playerID, transport)
	return nil
}

// SetChips is the admin chip override, routed to the table.
func (m *Manager) SetChips(tableID, playerID string, chips int) error {
	t, ok := m.Table(tableID)
	if !ok {
		return fmt.Errorf("unknown table %s", tableID)
	}
	return t.SetChips(playerID, chips)
}

// onFastFold runs on its own goroutine when a fast-fold seat folds: move
// the player to the pool table that needs them most. With nowhere to go the
// player simply stays where they are.
func (m *Manager) onFastFold(tableID, playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.tables[tableID]
	if !ok {
		return
	}
	dest := m.pickFastFoldDest(src)
	if dest == nil {
		return
	}
	m.migrate(src, dest, playerID)
}

// pickFastFoldDest must be called with m.mu held: the fullest pool table
// below capacity, excluding the source.
func (m *Manager) pickFastFoldDest(src *Table) *Table {
	var dest *Table
	for _, id := range m.order {
		t := m.tables[id]
		if !t.IsFastFold() || t == src || t.PlayerCount() >= MaxPlayers {
			continue
		}
		if dest == nil || t.PlayerCount() > dest.PlayerCount() {
			dest = t
		}
	}
	return dest
}

// migrate must be called with m.mu held. Returns whether the player landed
// at dest.
func (m *Manager) migrate(src, dest *Table, playerID string) bool {
	snapshot, err := src.UnseatForFastFold(playerID)
	if err != nil {
		m.logger.Warn("fast-fold migration lost its player",
			"player", playerID, "from", src.ID(), "error", err)
		return false
	}
	seat, err := dest.SeatPlayer(snapshot.PlayerID, snapshot.DisplayName, snapshot.AvatarRef,
		snapshot.Transport, snapshot.Chips, -1, true)
	if err != nil {
		// The destination filled up underneath us; put the player back.
		if _, err := src.SeatPlayer(snapshot.PlayerID, snapshot.DisplayName, snapshot.AvatarRef,
			snapshot.Transport, snapshot.Chips, -1, true); err != nil {
			m.logger.Error("fast-fold migration stranded a player", "player", playerID, "error", err)
		}
		return false
	}
	m.logger.Info("fast-fold reseat",
		"player", playerID, "from", src.ID(), "to", dest.ID(), "seat", seat)
	dest.AnnounceTableChange(snapshot.PlayerID, seat)
	dest.TriggerMaybeStartHand()
	return true
}

// onReassign runs on its own goroutine between hands on a fast-fold table.
// Idle pool tables are rebalanced toward full ones so six-handed starts come
// as often as the pool allows, then every pool table re-checks its start
// condition.
func (m *Manager) onReassign(tableID string, _ []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var idle []*Table
	for _, id := range m.order {
		t := m.tables[id]
		if t.IsFastFold() && !t.HandInProgress() {
			idle = append(idle, t)
		}
	}
	// Fullest first; drain the tail tables into the head ones.
	sort.SliceStable(idle, func(i, j int) bool {
		return idle[i].PlayerCount() > idle[j].PlayerCount()
	})
	for head := 0; head < len(idle); head++ {
		for idle[head].PlayerCount() < MaxPlayers {
			donor := m.emptiestAfter(idle, head)
			if donor == nil {
				break
			}
			ids := donor.SeatedPlayerIDs()
			if len(ids) == 0 {
				break
			}
			if !m.migrate(donor, idle[head], ids[len(ids)-1]) {
				break
			}
		}
	}
	for _, t := range idle {
		t.TriggerMaybeStartHand()
	}
}

// emptiestAfter must be called with m.mu held: the occupied idle table with
// the fewest players, strictly after position head.
func (m *Manager) emptiestAfter(idle []*Table, head int) *Table {
	var donor *Table
	for i := head + 1; i < len(idle); i++ {
		if idle[i].PlayerCount() == 0 {
			continue
		}
		if donor == nil || idle[i].PlayerCount() < donor.PlayerCount() {
			donor = idle[i]
		}
	}
	return donor
}
