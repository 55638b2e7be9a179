package game

import "time"

// Outbound event types. The transport wraps these in a {"type","data"}
// envelope; the core never touches sockets directly.
const (
	EvRoomJoined         = "room_joined"
	EvOpponentJoined     = "opponent_joined"
	EvMatchmakingWaiting = "matchmaking_waiting"
	EvRoomState          = "room_state"
	EvOpponentRoomReady  = "opponent_room_ready"
	EvMatchStartInit     = "match_start_init"
	EvGameStart          = "game_start"
	EvOpponentFleetReady = "opponent_fleet_ready"
	EvOpponentUnready    = "opponent_unready"
	EvShotProcessed      = "shot_processed"
	EvTurnChange         = "turn_change"
	EvPlayerVictory      = "player_victory"
	EvPlayerDefeat       = "player_defeat"
	EvOpponentStatus     = "opponent_status_update"
	EvOpponentLeft       = "opponent_left"
	EvMatchEnded         = "match_ended"
	EvRematchRequested   = "rematch_requested"
	EvRematchStarted     = "rematch_started"
	EvError              = "error"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Notifier delivers an event to whatever connection currently belongs to
// a clientID. Returns false when the client has no live connection.
type Notifier interface {
	Send(clientID string, ev Event) bool
}

type PlayerSummary struct {
	ClientID    string     `json:"clientId"`
	DisplayName string     `json:"displayName"`
	Status      ConnStatus `json:"status"`
	LobbyReady  bool       `json:"lobbyReady"`
	FleetReady  bool       `json:"fleetReady"`
}

type RoomJoinedData struct {
	RoomID   string         `json:"roomId"`
	Mode     string         `json:"mode"`
	Phase    Phase          `json:"phase"`
	Opponent *PlayerSummary `json:"opponent,omitempty"`
}

type RoomStateData struct {
	RoomID   string         `json:"roomId"`
	Mode     string         `json:"mode"`
	Phase    Phase          `json:"phase"`
	Opponent *PlayerSummary `json:"opponent,omitempty"`
	YourTurn bool           `json:"yourTurn"`
	Shots    []Cell         `json:"shotsAgainstYou,omitempty"`
}

type ReadyData struct {
	Ready bool `json:"ready"`
}

type GameStartData struct {
	YourTurn bool `json:"yourTurn"`
}

type ShotProcessedData struct {
	AttackerID string `json:"attackerId"`
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Result     string `json:"result"`
	SunkShip   *Ship  `json:"sunkShip,omitempty"`
}

type TurnChangeData struct {
	YourTurn bool `json:"yourTurn"`
}

type StatusUpdateData struct {
	Status ConnStatus `json:"status"`
}

type MatchEndedData struct {
	Reason string `json:"reason"`
}

type RematchStartedData struct {
	RoomID   string        `json:"roomId"`
	Mode     string        `json:"mode"`
	Opponent PlayerSummary `json:"opponent"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Shot results.
const (
	ResultMiss = "miss"
	ResultHit  = "hit"
	ResultSunk = "sunk"
)

// End reasons reported in match_ended and to the stats sink.
const (
	ReasonVictory           = "victory"
	ReasonOpponentLeft      = "opponent_left"
	ReasonDisconnectTimeout = "opponent_disconnected_timeout"
)

// MatchSummary is handed to the external stats sink on every ENDED
// transition. Delivery is fire-and-forget relative to gameplay.
type MatchSummary struct {
	RoomID    string
	Mode      string
	Duration  time.Duration
	EndReason string
	Players   []PlayerResult
}

type PlayerResult struct {
	ClientID  string
	AccountID string
	Shots     int
	Hits      int
	ShipsSunk int
	Result    string // "win" | "loss"
}

// MatchSink receives finished-match summaries. Implementations must not
// block the caller; failures never affect in-memory game state.
type MatchSink interface {
	RecordMatch(MatchSummary)
}
