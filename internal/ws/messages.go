package ws

import (
	"encoding/json"

	"github.com/krishanu7/navalclash/internal/game"
)

// Inbound event vocabulary. Every frame is {"type": ..., "data": {...}}.
const (
	MsgCreateRoom      = "create_room"
	MsgJoinRandom      = "join_random"
	MsgJoinSpecific    = "join_specific"
	MsgLeaveRoom       = "leave_room"
	MsgPlayerRoomReady = "player_room_ready"
	MsgRoomStartMatch  = "room_start_match"
	MsgFleetReady      = "fleet_ready"
	MsgPlayerUnready   = "player_unready"
	MsgFireShot        = "fire_shot"
	MsgRematchRequest  = "rematch_request"
	MsgRematchAccept   = "rematch_accept"
)

type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type CreateRoomData struct {
	Name    string `json:"name"`
	Mode    string `json:"mode"`
	AIMatch bool   `json:"aiMatch"`
}

type JoinRandomData struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

type JoinSpecificData struct {
	Name     string `json:"name"`
	TargetID string `json:"targetId"`
}

type RoomReadyData struct {
	Ready bool `json:"ready"`
}

type FleetReadyData struct {
	Fleet []game.Ship `json:"fleet"`
}

type FireShotData struct {
	Row int `json:"row"`
	Col int `json:"col"`
}
