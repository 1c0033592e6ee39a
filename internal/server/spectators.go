package server

// AddSpectator binds a watcher to the room. Spectators receive the same
// events as players and an unmasked view of every hand, starting with the
// current state immediately.
func (t *Table) AddSpectator(playerID string, transport Transport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.spectators[playerID] {
		t.room.Join(playerID, transport)
		return
	}
	t.spectators[playerID] = true
	t.room.Join(playerID, transport)
	if t.metrics != nil {
		t.metrics.SpectatorsWatching.Inc()
	}
	t.logger.Info("spectator joined", "player", playerID)
	t.room.Send(playerID, MessageTypeGameState,
		GameStateData{State: t.projectState(playerID, true, nil)})
}

// RemoveSpectator drops a watcher from the room.
func (t *Table) RemoveSpectator(playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.spectators[playerID] {
		return
	}
	delete(t.spectators, playerID)
	t.room.Leave(playerID)
	if t.metrics != nil {
		t.metrics.SpectatorsWatching.Dec()
	}
	t.logger.Info("spectator left", "player", playerID)
}

// IsSpectator reports whether the player is watching this table.
func (t *Table) IsSpectator(playerID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spectators[playerID]
}

// MessageLog returns the table's recent outbound messages, oldest first.
func (t *Table) MessageLog() []MessageLogEntry {
	return t.room.Log()
}
