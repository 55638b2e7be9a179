package game

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/krishanu7/navalclash/internal/match"
)

// Matches ended by leave/forfeit sooner than this after room creation
// are not reported to the stats sink.
const minReportableDuration = 30 * time.Second

// Service owns every mutation of room and queue state. Each operation
// is atomic with respect to the room it touches: the room lock is held
// across the whole check-and-mutate sequence and broadcasts happen only
// after the lock is released.
type Service struct {
	store    *Store
	queue    *match.Queue
	notifier Notifier
	sink     MatchSink
	grace    time.Duration
	log      zerolog.Logger
}

func NewService(store *Store, queue *match.Queue, notifier Notifier, sink MatchSink, grace time.Duration, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		queue:    queue,
		notifier: notifier,
		sink:     sink,
		grace:    grace,
		log:      log,
	}
}

func (s *Service) Store() *Store {
	return s.store
}

func (s *Service) send(clientID string, evType string, data any) {
	if !s.notifier.Send(clientID, Event{Type: evType, Data: data}) {
		s.log.Debug().Str("client", clientID).Str("event", evType).Msg("no live connection for event")
	}
}

func (s *Service) sendErr(clientID, code, message string) {
	s.send(clientID, EvError, ErrorData{Code: code, Message: message})
}

// evict removes clientID from wherever it currently sits (queue or
// room) so a client can only ever be in one place. Idempotent.
func (s *Service) evict(clientID string) {
	s.queue.Remove(clientID)
	if _, ok := s.store.FindByPlayer(clientID); ok {
		s.LeaveRoom(clientID, ReasonOpponentLeft)
	}
}

// CreateRoom allocates a fresh solo room and tells the creator its code.
func (s *Service) CreateRoom(clientID, connID, accountID, name, mode string, aiMatch bool) {
	s.evict(clientID)

	p := NewPlayer(clientID, connID, accountID, name)
	room := s.store.Create(mode, aiMatch, p)
	s.send(clientID, EvRoomJoined, RoomJoinedData{RoomID: room.ID, Mode: mode, Phase: PhaseWaiting})
}

// JoinRandom pairs the requester with the longest-waiting compatible
// queue entry, or enqueues them if nobody is waiting.
func (s *Service) JoinRandom(clientID, connID, accountID, name, mode string) {
	s.evict(clientID)

	entry, ok := s.queue.DequeueCompatible(mode)
	if !ok {
		s.queue.Enqueue(match.Entry{
			ClientID:     clientID,
			ConnectionID: connID,
			AccountID:    accountID,
			DisplayName:  name,
			Mode:         mode,
		})
		s.send(clientID, EvMatchmakingWaiting, nil)
		return
	}

	requester := NewPlayer(clientID, connID, accountID, name)
	opponent := NewPlayer(entry.ClientID, entry.ConnectionID, entry.AccountID, entry.DisplayName)
	s.pair(requester, opponent, mode)
}

// pair creates a two-player WAITING room and notifies both sides with
// each other's public summary.
func (s *Service) pair(a, b *Player, mode string) {
	room := s.store.Create(mode, false, a, b)
	aSum, bSum := a.Summary(), b.Summary()
	s.send(a.ClientID, EvRoomJoined, RoomJoinedData{RoomID: room.ID, Mode: mode, Phase: PhaseWaiting, Opponent: &bSum})
	s.send(b.ClientID, EvRoomJoined, RoomJoinedData{RoomID: room.ID, Mode: mode, Phase: PhaseWaiting, Opponent: &aSum})
}

// JoinSpecific handles three cases: reconnection to a room the client
// already sits in, joining an open room as the second seat, and pairing
// with a queued player by their id.
func (s *Service) JoinSpecific(clientID, connID, accountID, name, targetID string) {
	if room, ok := s.store.Get(targetID); ok {
		room.mu.Lock()
		isSeat := room.player(clientID) != nil
		room.mu.Unlock()
		if isSeat {
			s.Resync(clientID, connID, accountID)
			return
		}
	}

	s.evict(clientID)

	if room, ok := s.store.Get(targetID); ok {
		s.joinOpenRoom(room, clientID, connID, accountID, name)
		return
	}

	if entry, ok := s.queue.Take(targetID); ok {
		requester := NewPlayer(clientID, connID, accountID, name)
		target := NewPlayer(entry.ClientID, entry.ConnectionID, entry.AccountID, entry.DisplayName)
		s.pair(requester, target, entry.Mode)
		return
	}

	s.sendErr(clientID, "room_not_found", "room not found")
}

func (s *Service) joinOpenRoom(room *Room, clientID, connID, accountID, name string) {
	room.mu.Lock()
	if room.destroyed {
		room.mu.Unlock()
		s.sendErr(clientID, "room_not_found", "room not found")
		return
	}
	if room.Phase != PhaseWaiting {
		room.mu.Unlock()
		s.sendErr(clientID, "match_in_progress", "match already in progress")
		return
	}
	if len(room.Players) >= 2 || room.IsAIMatch {
		room.mu.Unlock()
		s.sendErr(clientID, "room_full", "room is full")
		return
	}

	p := NewPlayer(clientID, connID, accountID, name)
	room.Players = append(room.Players, p)
	// A fresh joiner invalidates any stale ready state on both seats.
	for _, seat := range room.Players {
		seat.LobbyReady = false
	}
	opp := room.opponentOf(clientID)
	roomID, mode := room.ID, room.Mode
	oppSum := opp.Summary()
	joinerSum := p.Summary()
	// Index before releasing the lock so the joiner's next event can
	// never miss the seat they just took.
	s.store.Bind(clientID, roomID)
	room.mu.Unlock()
	s.send(clientID, EvRoomJoined, RoomJoinedData{RoomID: roomID, Mode: mode, Phase: PhaseWaiting, Opponent: &oppSum})
	s.send(opp.ClientID, EvOpponentJoined, joinerSum)
}

// LeaveRoom removes the player and always destroys the room. A room
// that has been left is never reused; the remaining player (if any)
// wins by forfeit and goes back to the lobby flow.
func (s *Service) LeaveRoom(clientID, reason string) {
	for {
		room, ok := s.store.FindByPlayer(clientID)
		if !ok {
			s.queue.Remove(clientID)
			return
		}

		room.mu.Lock()
		if room.destroyed {
			// A rematch migrated this player to a fresh room while we
			// waited for the lock. Resolve again against the live room.
			room.mu.Unlock()
			continue
		}
		winner, summary := s.leaveLocked(room, clientID, reason)
		room.mu.Unlock()

		s.afterLeave(winner, reason, summary)
		return
	}
}

// leaveLocked performs the removal and room destruction under the room
// lock. Store methods never wait on room locks, so calling Destroy here
// is safe.
func (s *Service) leaveLocked(room *Room, clientID, reason string) (*Player, *MatchSummary) {
	leaver := room.removePlayer(clientID)
	if leaver == nil {
		return nil, nil
	}
	s.stopForfeitTimer(leaver)

	phaseWas := room.Phase
	room.Phase = PhaseEnded
	room.Turn = ""

	var winner *Player
	if len(room.Players) == 1 {
		winner = room.Players[0]
		s.stopForfeitTimer(winner)
	}

	room.destroyed = true
	s.store.Destroy(room.ID)
	s.log.Info().Str("room", room.ID).Str("client", clientID).Str("reason", reason).Msg("player left, room destroyed")

	var summary *MatchSummary
	if winner != nil && phaseWas == PhaseBattle {
		duration := time.Since(room.CreatedAt)
		if duration >= minReportableDuration {
			summary = &MatchSummary{
				RoomID:    room.ID,
				Mode:      room.Mode,
				Duration:  duration,
				EndReason: reason,
				Players: []PlayerResult{
					playerResult(winner, "win"),
					playerResult(leaver, "loss"),
				},
			}
		}
	}
	return winner, summary
}

func (s *Service) afterLeave(winner *Player, reason string, summary *MatchSummary) {
	if winner != nil {
		s.send(winner.ClientID, EvOpponentLeft, nil)
		s.send(winner.ClientID, EvMatchEnded, MatchEndedData{Reason: reason})
	}
	if summary != nil && s.sink != nil {
		go s.sink.RecordMatch(*summary)
	}
}

func playerResult(p *Player, result string) PlayerResult {
	return PlayerResult{
		ClientID:  p.ClientID,
		AccountID: p.AccountID,
		Shots:     p.Stats.ShotsFired,
		Hits:      p.Stats.Hits,
		ShipsSunk: p.Stats.ShipsSunk,
		Result:    result,
	}
}

// SetRoomReady toggles the pre-battle lobby gate. Only meaningful while
// the room is still waiting.
func (s *Service) SetRoomReady(clientID string, ready bool) {
	room, ok := s.store.FindByPlayer(clientID)
	if !ok {
		return
	}

	room.mu.Lock()
	if room.Phase != PhaseWaiting {
		room.mu.Unlock()
		return
	}
	p := room.player(clientID)
	if p == nil {
		room.mu.Unlock()
		return
	}
	p.LobbyReady = ready
	opp := room.opponentOf(clientID)
	room.mu.Unlock()

	if opp != nil {
		s.send(opp.ClientID, EvOpponentRoomReady, ReadyData{Ready: ready})
	}
}

// StartMatch moves WAITING -> PLACING once every seat is lobby-ready.
// Called speculatively by countdown UIs, so a failed precondition is a
// silent no-op rather than an error.
func (s *Service) StartMatch(clientID string) {
	room, ok := s.store.FindByPlayer(clientID)
	if !ok {
		return
	}

	room.mu.Lock()
	if room.Phase != PhaseWaiting || !room.allLobbyReady() {
		room.mu.Unlock()
		return
	}
	room.Phase = PhasePlacing
	players := append([]*Player(nil), room.Players...)
	room.mu.Unlock()

	for _, p := range players {
		s.send(p.ClientID, EvMatchStartInit, nil)
	}
}

// HandleDisconnect marks the seat disconnected and arms the forfeit
// grace timer. The connID check discards drops of connections that were
// already replaced by a reconnect.
func (s *Service) HandleDisconnect(clientID, connID string) {
	s.queue.Remove(clientID)

	for {
		room, ok := s.store.FindByPlayer(clientID)
		if !ok {
			return
		}

		room.mu.Lock()
		if room.destroyed {
			room.mu.Unlock()
			continue
		}
		p := room.player(clientID)
		if p == nil || p.ConnectionID != connID {
			room.mu.Unlock()
			return
		}
		p.Status = StatusDisconnected
		var opp *Player
		if room.Phase != PhaseEnded {
			p.forfeitGen++
			gen := p.forfeitGen
			roomID := room.ID
			p.forfeitTimer = time.AfterFunc(s.grace, func() {
				s.forfeitExpired(roomID, clientID, gen)
			})
			opp = room.opponentOf(clientID)
		} else if room.abandoned() {
			// Nobody is coming back for a finished match; without this
			// the room would outlive both its players.
			room.destroyed = true
			s.store.Destroy(room.ID)
			s.log.Info().Str("room", room.ID).Msg("abandoned room evicted")
		}
		room.mu.Unlock()

		if opp != nil {
			s.send(opp.ClientID, EvOpponentStatus, StatusUpdateData{Status: StatusDisconnected})
		}
		return
	}
}

// forfeitExpired fires when the grace period elapses without a
// reconnect. The generation check makes it a no-op when the player came
// back (or the timer was re-armed) in the meantime.
func (s *Service) forfeitExpired(roomID, clientID string, gen uint64) {
	room, ok := s.store.Get(roomID)
	if !ok {
		return
	}

	room.mu.Lock()
	p := room.player(clientID)
	if room.destroyed || p == nil || p.forfeitGen != gen || p.Status == StatusConnected {
		room.mu.Unlock()
		return
	}
	winner, summary := s.leaveLocked(room, clientID, ReasonDisconnectTimeout)
	room.mu.Unlock()

	s.afterLeave(winner, ReasonDisconnectTimeout, summary)
}

// stopForfeitTimer cancels an armed timer. Bumping the generation keeps
// an already-fired callback from acting. Idempotent; callers hold the
// room lock.
func (s *Service) stopForfeitTimer(p *Player) {
	p.forfeitGen++
	if p.forfeitTimer != nil {
		p.forfeitTimer.Stop()
		p.forfeitTimer = nil
	}
}

// Resync rebinds a (re)connecting client to its seat, cancels any
// pending forfeit, and replays enough state for the client to catch up.
func (s *Service) Resync(clientID, connID, accountID string) {
	var room *Room
	for {
		r, ok := s.store.FindByPlayer(clientID)
		if !ok {
			return
		}
		r.mu.Lock()
		if r.destroyed {
			r.mu.Unlock()
			continue
		}
		room = r
		break
	}

	p := room.player(clientID)
	if p == nil {
		room.mu.Unlock()
		return
	}
	p.ConnectionID = connID
	if accountID != "" {
		p.AccountID = accountID
	}
	wasDisconnected := p.Status == StatusDisconnected
	p.Status = StatusConnected
	s.stopForfeitTimer(p)

	opp := room.opponentOf(clientID)
	state := RoomStateData{
		RoomID:   room.ID,
		Mode:     room.Mode,
		Phase:    room.Phase,
		YourTurn: room.Phase == PhaseBattle && room.Turn == clientID,
	}
	if opp != nil {
		sum := opp.Summary()
		state.Opponent = &sum
	}
	for cell := range p.ShotsAgainst {
		state.Shots = append(state.Shots, cell)
	}
	room.mu.Unlock()

	s.send(clientID, EvRoomState, state)
	if wasDisconnected && opp != nil {
		s.send(opp.ClientID, EvOpponentStatus, StatusUpdateData{Status: StatusConnected})
	}
}
