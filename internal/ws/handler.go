package ws

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/krishanu7/navalclash/internal/game"
	wsPkg "github.com/krishanu7/navalclash/pkg/websocket"
)

// Handler upgrades sockets, binds them to stable client identities and
// dispatches inbound events to the game service. Unknown or malformed
// frames are dropped, never answered: they are client bugs or stale-UI
// races, not user-facing errors.
type Handler struct {
	registry  *wsPkg.Registry
	service   *game.Service
	jwtSecret string
	log       zerolog.Logger
}

func NewHandler(registry *wsPkg.Registry, service *game.Service, jwtSecret string, log zerolog.Logger) *Handler {
	return &Handler{
		registry:  registry,
		service:   service,
		jwtSecret: jwtSecret,
		log:       log,
	}
}

// ServeWS handles GET /ws?clientId=...&name=...&token=... A connection
// without a clientId is rejected outright; there are no anonymous
// unidentified sessions.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("clientId")
	if clientID == "" {
		http.Error(w, "missing clientId", http.StatusBadRequest)
		return
	}
	accountID := h.accountFromToken(r.URL.Query().Get("token"))

	conn, err := wsPkg.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	connID := uuid.NewString()
	client := wsPkg.NewClient(clientID, connID, conn)
	h.registry.Bind(client)
	h.log.Info().Str("client", clientID).Str("conn", connID).Msg("connection bound")

	// If this identity already owns a seat somewhere, this replays the
	// room state and cancels any pending forfeit.
	h.service.Resync(clientID, connID, accountID)

	go h.write(client)
	go h.read(client, accountID)
}

func (h *Handler) read(c *wsPkg.Client, accountID string) {
	defer func() {
		if h.registry.Release(c.ClientID, c.ConnID) {
			h.service.HandleDisconnect(c.ClientID, c.ConnID)
		}
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			h.log.Debug().Str("client", c.ClientID).Err(err).Msg("read loop ended")
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			h.log.Debug().Str("client", c.ClientID).Err(err).Msg("malformed frame dropped")
			continue
		}
		h.dispatch(c, accountID, env)
	}
}

func (h *Handler) dispatch(c *wsPkg.Client, accountID string, env Envelope) {
	switch env.Type {
	case MsgCreateRoom:
		var d CreateRoomData
		if err := unmarshalData(env.Data, &d); err != nil {
			return
		}
		h.service.CreateRoom(c.ClientID, c.ConnID, accountID, d.Name, modeOrDefault(d.Mode), d.AIMatch)

	case MsgJoinRandom:
		var d JoinRandomData
		if err := unmarshalData(env.Data, &d); err != nil {
			return
		}
		h.service.JoinRandom(c.ClientID, c.ConnID, accountID, d.Name, modeOrDefault(d.Mode))

	case MsgJoinSpecific:
		var d JoinSpecificData
		if err := unmarshalData(env.Data, &d); err != nil {
			return
		}
		h.service.JoinSpecific(c.ClientID, c.ConnID, accountID, d.Name, d.TargetID)

	case MsgLeaveRoom:
		h.service.LeaveRoom(c.ClientID, game.ReasonOpponentLeft)

	case MsgPlayerRoomReady:
		var d RoomReadyData
		if err := unmarshalData(env.Data, &d); err != nil {
			return
		}
		h.service.SetRoomReady(c.ClientID, d.Ready)

	case MsgRoomStartMatch:
		h.service.StartMatch(c.ClientID)

	case MsgFleetReady:
		var d FleetReadyData
		if err := unmarshalData(env.Data, &d); err != nil {
			return
		}
		h.service.SubmitFleet(c.ClientID, d.Fleet)

	case MsgPlayerUnready:
		h.service.Unready(c.ClientID)

	case MsgFireShot:
		var d FireShotData
		if err := unmarshalData(env.Data, &d); err != nil {
			return
		}
		h.service.FireShot(c.ClientID, d.Row, d.Col)

	case MsgRematchRequest:
		h.service.RequestRematch(c.ClientID)

	case MsgRematchAccept:
		h.service.AcceptRematch(c.ClientID)

	default:
		h.log.Debug().Str("client", c.ClientID).Str("type", env.Type).Msg("unknown event type dropped")
	}
}

func (h *Handler) write(c *wsPkg.Client) {
	defer c.Conn.Close()

	for msg := range c.Outbox() {
		if err := c.Conn.WriteMessage(gws.TextMessage, msg); err != nil {
			h.log.Debug().Str("client", c.ClientID).Err(err).Msg("write failed")
			return
		}
	}
}

// accountFromToken resolves an optional JWT to an account id. A missing
// or invalid token just means a guest seat.
func (h *Handler) accountFromToken(tokenString string) string {
	if tokenString == "" || h.jwtSecret == "" {
		return ""
	}
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil || !token.Valid {
		h.log.Debug().Err(err).Msg("invalid token on connect, treating as guest")
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	userID, _ := claims["user_id"].(string)
	return userID
}

func unmarshalData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func modeOrDefault(mode string) string {
	if mode == "" {
		return "classic"
	}
	return mode
}
