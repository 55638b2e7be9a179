package game

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"
)

// Store is the authoritative table of active rooms. It also maintains a
// clientID -> roomID index so reconnect resolution stays O(1) as the
// room count grows.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	byClient map[string]string
	log      zerolog.Logger
}

func NewStore(log zerolog.Logger) *Store {
	return &Store{
		rooms:    make(map[string]*Room),
		byClient: make(map[string]string),
		log:      log,
	}
}

// allocateID produces a short shareable room code not currently in use.
// Callers hold mu.
func (s *Store) allocateID() string {
	for {
		id := fmt.Sprintf("%06d", rand.Intn(1000000))
		if _, taken := s.rooms[id]; !taken {
			return id
		}
	}
}

// Create allocates a fresh room in WAITING phase and indexes its players.
func (s *Store) Create(mode string, aiMatch bool, players ...*Player) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.allocateID()
	room := NewRoom(id, mode, aiMatch, players...)
	s.rooms[id] = room
	for _, p := range players {
		s.byClient[p.ClientID] = id
	}
	s.log.Info().Str("room", id).Str("mode", mode).Int("players", len(players)).Msg("room created")
	return room
}

func (s *Store) Get(id string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	return room, ok
}

// FindByPlayer resolves the room currently holding a seat for clientID.
func (s *Store) FindByPlayer(clientID string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byClient[clientID]
	if !ok {
		return nil, false
	}
	room, ok := s.rooms[id]
	return room, ok
}

// Bind indexes a player who joined an already-existing room.
func (s *Store) Bind(clientID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byClient[clientID] = roomID
}

// Unbind drops a player's index entry, but only if it still points at
// the given room (a rematch may have re-bound it already).
func (s *Store) Unbind(clientID, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byClient[clientID] == roomID {
		delete(s.byClient, clientID)
	}
}

// Destroy removes the room and any index entries still pointing at it.
func (s *Store) Destroy(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[id]; !ok {
		return
	}
	delete(s.rooms, id)
	for clientID, roomID := range s.byClient {
		if roomID == id {
			delete(s.byClient, clientID)
		}
	}
	s.log.Info().Str("room", id).Msg("room destroyed")
}

// Snapshot returns the lobby-browsing projection of every active room.
func (s *Store) Snapshot() []RoomSummary {
	s.mu.RLock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.RUnlock()

	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
