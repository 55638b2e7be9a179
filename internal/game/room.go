package game

import (
	"sync"
	"time"
)

type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhasePlacing Phase = "placing"
	PhaseBattle  Phase = "battle"
	PhaseEnded   Phase = "ended"
)

// Room is the authoritative session object for one match. All mutation
// happens under mu so that concurrent events for the same room can never
// interleave; different rooms never block each other.
type Room struct {
	mu sync.Mutex

	ID        string
	Mode      string
	Phase     Phase
	Turn      string // clientID whose move it is; meaningful only in battle
	IsAIMatch bool
	CreatedAt time.Time

	Players []*Player

	// Rematch handshake: which seats have asked for a rematch.
	rematchWanted map[string]bool

	// destroyed is set under mu when the room is removed from the
	// store. An operation that resolved this room before a teardown or
	// rematch migration finds it here and knows its reference is stale.
	destroyed bool
}

func NewRoom(id, mode string, aiMatch bool, players ...*Player) *Room {
	return &Room{
		ID:            id,
		Mode:          mode,
		Phase:         PhaseWaiting,
		IsAIMatch:     aiMatch,
		CreatedAt:     time.Now(),
		Players:       players,
		rematchWanted: make(map[string]bool),
	}
}

// requiredSeats is 1 for AI matches (the second seat is driven locally
// by the client), 2 otherwise.
func (r *Room) requiredSeats() int {
	if r.IsAIMatch {
		return 1
	}
	return 2
}

// player returns the seat for clientID, or nil. Callers hold mu.
func (r *Room) player(clientID string) *Player {
	for _, p := range r.Players {
		if p.ClientID == clientID {
			return p
		}
	}
	return nil
}

// opponentOf returns the other seat, or nil for a solo room.
func (r *Room) opponentOf(clientID string) *Player {
	for _, p := range r.Players {
		if p.ClientID != clientID {
			return p
		}
	}
	return nil
}

func (r *Room) removePlayer(clientID string) *Player {
	for i, p := range r.Players {
		if p.ClientID == clientID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return p
		}
	}
	return nil
}

// abandoned reports whether no seat has a live connection. Callers
// hold mu.
func (r *Room) abandoned() bool {
	for _, p := range r.Players {
		if p.Status == StatusConnected {
			return false
		}
	}
	return true
}

func (r *Room) allLobbyReady() bool {
	if len(r.Players) < r.requiredSeats() {
		return false
	}
	for _, p := range r.Players {
		if !p.LobbyReady {
			return false
		}
	}
	return true
}

func (r *Room) allFleetsReady() bool {
	if len(r.Players) < r.requiredSeats() {
		return false
	}
	for _, p := range r.Players {
		if !p.FleetReady {
			return false
		}
	}
	return true
}

// RoomSummary is the lobby-browsing projection of a room.
type RoomSummary struct {
	ID          string `json:"id"`
	SeatsFilled int    `json:"seatsFilled"`
	Phase       Phase  `json:"phase"`
	Mode        string `json:"mode"`
}

func (r *Room) Summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomSummary{
		ID:          r.ID,
		SeatsFilled: len(r.Players),
		Phase:       r.Phase,
		Mode:        r.Mode,
	}
}
