package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/okihara/plo-game-sub001/internal/game"
	"github.com/okihara/plo-game-sub001/internal/gameid"
	"github.com/okihara/plo-game-sub001/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one websocket session. It implements Transport: Send
// queues without blocking and closes the connection when the client cannot
// keep up.
type Connection struct {
	conn       *websocket.Conn
	send       chan *Message
	logger     *log.Logger
	clock      quartz.Clock
	manager    *Manager
	metrics    *metrics.Metrics
	adminToken string

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu          sync.RWMutex
	playerID    string
	displayName string
	avatarRef   string
	admin       bool
	tableID     string
	spectating  string
}

// NewConnection wraps an upgraded websocket.
func NewConnection(conn *websocket.Conn, logger *log.Logger, clock quartz.Clock, manager *Manager, m *metrics.Metrics, adminToken string) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:       conn,
		send:       make(chan *Message, 256),
		logger:     logger.WithPrefix("conn"),
		clock:      clock,
		manager:    manager,
		metrics:    m,
		adminToken: adminToken,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins the read and write pumps.
func (c *Connection) Start() {
	if c.metrics != nil {
		c.metrics.ConnectionsActive.Inc()
	}
	go c.writePump()
	go c.readPump()
}

// Close implements Transport.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
		if c.metrics != nil {
			c.metrics.ConnectionsActive.Dec()
		}
	})
	return err
}

// Send implements Transport. A full buffer closes the connection rather
// than stall a table broadcast.
func (c *Connection) Send(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Send raced Close; the channel is gone.
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection", "player", c.PlayerID())
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// PlayerID returns the session's assigned id, empty before auth.
func (c *Connection) PlayerID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Connection) readPump() {
	defer func() {
		_ = c.Close()
		if playerID := c.PlayerID(); playerID != "" {
			c.manager.Detach(playerID)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "player", c.PlayerID(), "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type, "player", c.PlayerID())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MessageTypeJoin:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("failed to parse join data")
			return
		}
		c.handleJoin(data)

	case MessageTypeSpectate:
		var data SpectateTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("failed to parse spectate data")
			return
		}
		c.handleSpectate(data)

	case MessageTypeLeave:
		var data LeaveTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("failed to parse leave data")
			return
		}
		c.handleLeave(data)

	case MessageTypeAction:
		var data PlayerActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			// Gameplay failures are silent: log and drop.
			c.logger.Warn("malformed action payload", "player", c.PlayerID(), "error", err)
			return
		}
		c.handleAction(data)

	case MessageTypeEarlyFold:
		var data EarlyFoldData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.logger.Warn("malformed early fold payload", "player", c.PlayerID(), "error", err)
			return
		}
		c.handleEarlyFold(data)

	case MessageTypeSetChips:
		var data SetChipsData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("failed to parse set chips data")
			return
		}
		c.handleSetChips(data)

	default:
		c.logger.Warn("unknown message type", "type", msg.Type, "player", c.PlayerID())
	}
}

func (c *Connection) sendError(message string) {
	msg, err := NewMessage(MessageTypeError, ErrorData{Message: message}, c.clock.Now())
	if err != nil {
		c.logger.Error("failed to encode error message", "error", err)
		return
	}
	_ = c.Send(msg)
}

func (c *Connection) sendEvent(event MessageType, data any) {
	msg, err := NewMessage(event, data, c.clock.Now())
	if err != nil {
		c.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}
	_ = c.Send(msg)
}

func (c *Connection) handleAuth(data AuthData) {
	if data.DisplayName == "" {
		c.sendError("display name required")
		return
	}

	c.mu.Lock()
	if c.playerID == "" {
		c.playerID = gameid.New()
	}
	c.displayName = data.DisplayName
	c.avatarRef = data.AvatarRef
	c.admin = c.adminToken != "" && data.AdminToken == c.adminToken
	playerID := c.playerID
	admin := c.admin
	c.mu.Unlock()

	c.logger.Info("authenticated", "player", playerID, "name", data.DisplayName, "admin", admin)
	c.sendEvent(MessageTypeAuthOK, AuthOKData{PlayerID: playerID})
}

// session returns the authed identity, or ok=false before auth.
func (c *Connection) session() (playerID, displayName, avatarRef string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID, c.displayName, c.avatarRef, c.playerID != ""
}

func (c *Connection) handleJoin(data JoinTableData) {
	playerID, displayName, avatarRef, ok := c.session()
	if !ok {
		c.sendError("must authenticate first")
		return
	}
	preferred := -1
	if data.PreferredSeat != nil {
		preferred = *data.PreferredSeat
	}
	tableID, _, err := c.manager.JoinTable(playerID, displayName, avatarRef, c, data.TableID, preferred, data.BuyIn)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.mu.Lock()
	c.tableID = tableID
	c.mu.Unlock()
}

func (c *Connection) handleSpectate(data SpectateTableData) {
	playerID, _, _, ok := c.session()
	if !ok {
		c.sendError("must authenticate first")
		return
	}
	if err := c.manager.Spectate(playerID, c, data.TableID); err != nil {
		c.sendError(err.Error())
		return
	}
	c.mu.Lock()
	c.spectating = data.TableID
	c.mu.Unlock()
}

func (c *Connection) handleLeave(data LeaveTableData) {
	playerID, _, _, ok := c.session()
	if !ok {
		c.sendError("must authenticate first")
		return
	}

	c.mu.RLock()
	spectating := c.spectating
	c.mu.RUnlock()
	if spectating != "" && (data.TableID == "" || data.TableID == spectating) {
		if t, ok := c.manager.Table(spectating); ok {
			t.RemoveSpectator(playerID)
		}
		c.mu.Lock()
		c.spectating = ""
		c.mu.Unlock()
		return
	}

	if err := c.manager.LeaveTable(playerID, data.TableID); err != nil {
		c.sendError(err.Error())
		return
	}
	c.mu.Lock()
	c.tableID = ""
	c.mu.Unlock()
}

func (c *Connection) handleAction(data PlayerActionData) {
	playerID, _, _, ok := c.session()
	if !ok {
		return
	}
	action, err := game.ParseActionKind(data.Action)
	if err != nil {
		c.logger.Warn("unknown action", "player", playerID, "action", data.Action)
		return
	}
	t, found := c.manager.Table(data.TableID)
	if !found {
		c.logger.Warn("action for unknown table", "player", playerID, "table", data.TableID)
		return
	}
	t.HandleAction(playerID, action, data.Amount)
}

func (c *Connection) handleEarlyFold(data EarlyFoldData) {
	playerID, _, _, ok := c.session()
	if !ok {
		return
	}
	t, found := c.manager.Table(data.TableID)
	if !found {
		c.logger.Warn("early fold for unknown table", "player", playerID, "table", data.TableID)
		return
	}
	t.HandleEarlyFold(playerID)
}

func (c *Connection) handleSetChips(data SetChipsData) {
	playerID, _, _, ok := c.session()
	if !ok {
		c.sendError("must authenticate first")
		return
	}
	c.mu.RLock()
	admin := c.admin
	c.mu.RUnlock()
	if !admin {
		c.logger.Warn("set_chips from non-admin", "player", playerID)
		c.sendError("admin token required")
		return
	}
	if err := c.manager.SetChips(data.TableID, data.PlayerID, data.Chips); err != nil {
		c.sendError(err.Error())
		return
	}
}
