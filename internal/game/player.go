package game

import "time"

type ConnStatus string

const (
	StatusConnected    ConnStatus = "connected"
	StatusDisconnected ConnStatus = "disconnected"
)

type Stats struct {
	ShotsFired int `json:"shots_fired"`
	Hits       int `json:"hits"`
	Misses     int `json:"misses"`
	Score      int `json:"score"`
	ShipsSunk  int `json:"ships_sunk"`
}

// Player is one seat in a Room. ClientID is the stable identity that
// survives reconnects; ConnectionID is the transient socket handle.
type Player struct {
	ClientID     string
	ConnectionID string
	AccountID    string
	DisplayName  string
	Status       ConnStatus

	FleetReady bool
	LobbyReady bool
	Fleet      []Ship
	// ShotsAgainst is this player's own damage record: every cell the
	// opponent has fired at.
	ShotsAgainst map[Cell]bool
	Stats        Stats

	// Forfeit timer bookkeeping, guarded by the room lock. The
	// generation counter makes cancel-vs-fire races resolve cleanly:
	// a fired callback whose generation no longer matches is stale.
	forfeitTimer *time.Timer
	forfeitGen   uint64
}

func NewPlayer(clientID, connectionID, accountID, displayName string) *Player {
	return &Player{
		ClientID:     clientID,
		ConnectionID: connectionID,
		AccountID:    accountID,
		DisplayName:  displayName,
		Status:       StatusConnected,
		ShotsAgainst: make(map[Cell]bool),
	}
}

// ResetMatchState clears every per-match mutable field. Used on rematch.
func (p *Player) ResetMatchState() {
	p.FleetReady = false
	p.LobbyReady = false
	p.Fleet = nil
	p.ShotsAgainst = make(map[Cell]bool)
	p.Stats = Stats{}
}

// ShipAt returns the ship occupying the cell, or nil.
func (p *Player) ShipAt(c Cell) *Ship {
	for i := range p.Fleet {
		if p.Fleet[i].Occupies(c) {
			return &p.Fleet[i]
		}
	}
	return nil
}

// IsSunk reports whether every cell of the ship has been hit. Recomputed
// from scratch each call rather than tracked incrementally.
func (p *Player) IsSunk(s *Ship) bool {
	for _, cell := range s.Cells() {
		if !p.ShotsAgainst[cell] {
			return false
		}
	}
	return true
}

// FleetSunk reports whether the entire fleet is covered by received shots.
func (p *Player) FleetSunk() bool {
	if len(p.Fleet) == 0 {
		return false
	}
	for i := range p.Fleet {
		if !p.IsSunk(&p.Fleet[i]) {
			return false
		}
	}
	return true
}

func (p *Player) Summary() PlayerSummary {
	return PlayerSummary{
		ClientID:    p.ClientID,
		DisplayName: p.DisplayName,
		Status:      p.Status,
		LobbyReady:  p.LobbyReady,
		FleetReady:  p.FleetReady,
	}
}
