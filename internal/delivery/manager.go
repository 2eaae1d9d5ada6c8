package delivery

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/EAniwa/legacylancers-sub002/internal/domain"
)

// EventWriter is the minimal interface the manager needs from a socket: the
// ability to push one JSON frame to the connected client.
type EventWriter interface {
	WriteJSON(v interface{}) error
}

// Connection is one live client socket with its authenticated identity.
// writeMu serializes frames; the websocket library does not allow concurrent
// writers.
type Connection struct {
	ID     string
	UserID string

	w       EventWriter
	writeMu sync.Mutex
	closed  bool
}

// Send writes one event to the client. Sending to a closed connection is a
// no-op, not an error.
func (c *Connection) Send(evt domain.ServerEvent) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic writing to connection %s: %v", c.ID, r)
		}
	}()
	return c.w.WriteJSON(evt)
}

func (c *Connection) markClosed() {
	c.writeMu.Lock()
	c.closed = true
	c.writeMu.Unlock()
}

// Manager tracks live connections, the per-user index and the rooms used as
// broadcast scopes. A room is the set of connections currently joined to a
// conversation id.
type Manager struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	byUser map[string]map[string]*Connection
	rooms  map[string]map[string]*Connection
	joined map[string]map[string]struct{} // connection id -> joined room ids
}

func NewManager() *Manager {
	return &Manager{
		conns:  make(map[string]*Connection),
		byUser: make(map[string]map[string]*Connection),
		rooms:  make(map[string]map[string]*Connection),
		joined: make(map[string]map[string]struct{}),
	}
}

// Register adds a socket for the given user and returns its connection.
func (m *Manager) Register(userID string, w EventWriter) *Connection {
	conn := &Connection{ID: uuid.New().String(), UserID: userID, w: w}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.conns[conn.ID] = conn
	if _, ok := m.byUser[userID]; !ok {
		m.byUser[userID] = make(map[string]*Connection)
	}
	m.byUser[userID][conn.ID] = conn
	m.joined[conn.ID] = make(map[string]struct{})

	log.Printf("Connection %s registered for user %s (%d total for user)",
		conn.ID, userID, len(m.byUser[userID]))
	return conn
}

// Unregister removes a connection from every index and room it belongs to.
// It returns how many connections the user still has.
func (m *Manager) Unregister(connID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		return 0
	}
	conn.markClosed()
	delete(m.conns, connID)

	for room := range m.joined[connID] {
		m.leaveRoomLocked(connID, room)
	}
	delete(m.joined, connID)

	remaining := 0
	if conns, ok := m.byUser[conn.UserID]; ok {
		delete(conns, connID)
		remaining = len(conns)
		if remaining == 0 {
			delete(m.byUser, conn.UserID)
		}
	}
	log.Printf("Connection %s removed for user %s (%d remaining)", connID, conn.UserID, remaining)
	return remaining
}

func (m *Manager) JoinRoom(connID, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		return
	}
	if _, ok := m.rooms[room]; !ok {
		m.rooms[room] = make(map[string]*Connection)
	}
	m.rooms[room][connID] = conn
	m.joined[connID][room] = struct{}{}
}

func (m *Manager) LeaveRoom(connID, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.leaveRoomLocked(connID, room)
	if set, ok := m.joined[connID]; ok {
		delete(set, room)
	}
}

// leaveRoomLocked removes connID from room and cleans up empty rooms.
// Callers hold mu.
func (m *Manager) leaveRoomLocked(connID, room string) {
	if conns, ok := m.rooms[room]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(m.rooms, room)
		}
	}
}

// RoomOccupants returns the distinct user ids with a live connection in room.
func (m *Manager) RoomOccupants(room string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, conn := range m.rooms[room] {
		if _, dup := seen[conn.UserID]; dup {
			continue
		}
		seen[conn.UserID] = struct{}{}
		out = append(out, conn.UserID)
	}
	return out
}

// UserConnectionCount reports how many live connections a user has.
func (m *Manager) UserConnectionCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID])
}

// BroadcastRoom sends evt to every connection in room, excluding exceptConn
// when set. Failed writers are dropped from the manager so stale sockets
// don't accumulate.
func (m *Manager) BroadcastRoom(room, exceptConn string, evt domain.ServerEvent) {
	m.mu.RLock()
	targets := make([]*Connection, 0, len(m.rooms[room]))
	for id, conn := range m.rooms[room] {
		if id == exceptConn {
			continue
		}
		targets = append(targets, conn)
	}
	m.mu.RUnlock()

	m.fanOut(targets, evt)
}

// BroadcastUser sends evt to all of userID's connections.
func (m *Manager) BroadcastUser(userID string, evt domain.ServerEvent) {
	m.mu.RLock()
	targets := make([]*Connection, 0, len(m.byUser[userID]))
	for _, conn := range m.byUser[userID] {
		targets = append(targets, conn)
	}
	m.mu.RUnlock()

	m.fanOut(targets, evt)
}

// BroadcastAll sends evt to every live connection, excluding exceptConn when
// set. Used for global presence fan-out.
func (m *Manager) BroadcastAll(exceptConn string, evt domain.ServerEvent) {
	m.mu.RLock()
	targets := make([]*Connection, 0, len(m.conns))
	for id, conn := range m.conns {
		if id == exceptConn {
			continue
		}
		targets = append(targets, conn)
	}
	m.mu.RUnlock()

	m.fanOut(targets, evt)
}

func (m *Manager) fanOut(targets []*Connection, evt domain.ServerEvent) {
	var wg sync.WaitGroup
	for _, conn := range targets {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			if err := c.Send(evt); err != nil {
				log.Printf("Failed to send %s to connection %s: %v", evt.Type, c.ID, err)
				m.Unregister(c.ID)
			}
		}(conn)
	}
	wg.Wait()
}
