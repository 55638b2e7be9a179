package game

import (
	"math/rand"
	"time"
)

// SubmitFleet validates and commits a player's ship placements. Fleet
// geometry is never revealed to the opponent; they only learn that the
// player is ready. When both seats are ready the battle starts with a
// uniformly random first turn.
func (s *Service) SubmitFleet(clientID string, ships []Ship) {
	room, ok := s.store.FindByPlayer(clientID)
	if !ok {
		return
	}

	room.mu.Lock()
	if room.Phase != PhasePlacing {
		room.mu.Unlock()
		return
	}
	p := room.player(clientID)
	if p == nil {
		room.mu.Unlock()
		return
	}
	if err := ValidateFleet(room.Mode, ships); err != nil {
		room.mu.Unlock()
		s.sendErr(clientID, "invalid_fleet", err.Error())
		return
	}

	p.Fleet = append([]Ship(nil), ships...)
	p.FleetReady = true

	opp := room.opponentOf(clientID)
	starting := room.allFleetsReady()
	var turn string
	var players []*Player
	if starting {
		room.Phase = PhaseBattle
		room.Turn = room.Players[rand.Intn(len(room.Players))].ClientID
		turn = room.Turn
		players = append([]*Player(nil), room.Players...)
	}
	room.mu.Unlock()

	if opp != nil {
		s.send(opp.ClientID, EvOpponentFleetReady, nil)
	}
	if starting {
		s.log.Info().Str("room", room.ID).Str("firstTurn", turn).Msg("battle started")
		for _, seat := range players {
			s.send(seat.ClientID, EvGameStart, GameStartData{YourTurn: seat.ClientID == turn})
		}
	}
}

// Unready reverts a confirmed fleet so the player can edit their board.
// Rejected once the room has progressed to battle; before placing even
// begins it is just a stale frame and is dropped.
func (s *Service) Unready(clientID string) {
	room, ok := s.store.FindByPlayer(clientID)
	if !ok {
		return
	}

	room.mu.Lock()
	if room.Phase == PhaseBattle || room.Phase == PhaseEnded {
		room.mu.Unlock()
		s.sendErr(clientID, "already_started", "cannot unready after battle start")
		return
	}
	if room.Phase != PhasePlacing {
		room.mu.Unlock()
		return
	}
	p := room.player(clientID)
	if p == nil || !p.FleetReady {
		room.mu.Unlock()
		return
	}
	p.FleetReady = false
	p.Fleet = nil
	opp := room.opponentOf(clientID)
	room.mu.Unlock()

	if opp != nil {
		s.send(opp.ClientID, EvOpponentUnready, nil)
	}
}

// FireShot resolves one shot. The server is authoritative on turn
// order: a shot from anyone but room.Turn changes nothing and emits
// nothing. A miss passes the turn; a hit or sunk keeps it with the
// shooter (the classic ruleset rewards successive hits).
func (s *Service) FireShot(clientID string, row, col int) {
	room, ok := s.store.FindByPlayer(clientID)
	if !ok {
		return
	}

	room.mu.Lock()
	if room.Phase != PhaseBattle || room.Turn != clientID {
		room.mu.Unlock()
		return
	}
	shooter := room.player(clientID)
	opp := room.opponentOf(clientID)
	if shooter == nil || opp == nil {
		room.mu.Unlock()
		return
	}
	cell := Cell{Row: row, Col: col}
	if !cell.InBounds() || opp.ShotsAgainst[cell] {
		room.mu.Unlock()
		return
	}

	opp.ShotsAgainst[cell] = true
	shooter.Stats.ShotsFired++

	result := ResultMiss
	var sunkShip *Ship
	if ship := opp.ShipAt(cell); ship != nil {
		result = ResultHit
		shooter.Stats.Hits++
		shooter.Stats.Score += 10
		if opp.IsSunk(ship) {
			result = ResultSunk
			shooter.Stats.ShipsSunk++
			shooter.Stats.Score += 5 * ship.Size
			copied := *ship
			sunkShip = &copied
		}
	} else {
		shooter.Stats.Misses++
	}

	shot := ShotProcessedData{
		AttackerID: clientID,
		Row:        row,
		Col:        col,
		Result:     result,
		SunkShip:   sunkShip,
	}

	won := result != ResultMiss && opp.FleetSunk()
	var summary *MatchSummary
	if won {
		room.Phase = PhaseEnded
		room.Turn = ""
		summary = room.buildSummary(ReasonVictory, shooter, opp)
	} else if result == ResultMiss {
		room.Turn = opp.ClientID
	}
	turn := room.Turn
	players := append([]*Player(nil), room.Players...)
	room.mu.Unlock()

	for _, seat := range players {
		s.send(seat.ClientID, EvShotProcessed, shot)
	}
	if won {
		s.log.Info().Str("room", room.ID).Str("winner", clientID).Msg("match won")
		s.send(shooter.ClientID, EvPlayerVictory, nil)
		s.send(opp.ClientID, EvPlayerDefeat, nil)
		if summary != nil && s.sink != nil {
			go s.sink.RecordMatch(*summary)
		}
		return
	}
	for _, seat := range players {
		s.send(seat.ClientID, EvTurnChange, TurnChangeData{YourTurn: seat.ClientID == turn})
	}
}

// buildSummary snapshots the finished match for the stats sink.
// Callers hold the room lock.
func (r *Room) buildSummary(reason string, winner, loser *Player) *MatchSummary {
	return &MatchSummary{
		RoomID:    r.ID,
		Mode:      r.Mode,
		Duration:  time.Since(r.CreatedAt),
		EndReason: reason,
		Players: []PlayerResult{
			playerResult(winner, "win"),
			playerResult(loser, "loss"),
		},
	}
}

// RequestRematch notifies the opponent that this side wants to go
// again. Nothing is rebuilt until the other side accepts.
func (s *Service) RequestRematch(clientID string) {
	room, ok := s.store.FindByPlayer(clientID)
	if !ok {
		return
	}

	room.mu.Lock()
	if room.destroyed || room.Phase != PhaseEnded {
		room.mu.Unlock()
		return
	}
	if room.player(clientID) == nil {
		room.mu.Unlock()
		return
	}
	room.rematchWanted[clientID] = true
	opp := room.opponentOf(clientID)
	room.mu.Unlock()

	if opp != nil {
		s.send(opp.ClientID, EvRematchRequested, nil)
	}
}

// AcceptRematch completes the handshake by migrating both players into
// a brand-new room with all per-match state reset. The old room id is
// dead afterwards: stale references to it fail as room-not-found.
func (s *Service) AcceptRematch(clientID string) {
	room, ok := s.store.FindByPlayer(clientID)
	if !ok {
		return
	}

	room.mu.Lock()
	if room.destroyed || room.Phase != PhaseEnded || room.player(clientID) == nil {
		room.mu.Unlock()
		return
	}
	opp := room.opponentOf(clientID)
	if opp == nil || !room.rematchWanted[opp.ClientID] {
		room.mu.Unlock()
		return
	}

	players := append([]*Player(nil), room.Players...)
	for _, p := range players {
		p.ResetMatchState()
	}
	// Create rebinds the clientID index to the new room, then Destroy
	// drops the old id. Holding the old room's lock across both keeps
	// the migration atomic against concurrent events.
	newRoom := s.store.Create(room.Mode, room.IsAIMatch, players...)
	oldID := room.ID
	room.destroyed = true
	s.store.Destroy(oldID)
	room.mu.Unlock()

	s.log.Info().Str("old", oldID).Str("new", newRoom.ID).Msg("rematch migrated")
	for _, p := range players {
		other := players[0]
		if other == p {
			other = players[1]
		}
		s.send(p.ClientID, EvRematchStarted, RematchStartedData{
			RoomID:   newRoom.ID,
			Mode:     newRoom.Mode,
			Opponent: other.Summary(),
		})
	}
}
