package ws

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/krishanu7/navalclash/internal/game"
	wsPkg "github.com/krishanu7/navalclash/pkg/websocket"
)

// Notifier adapts the connection registry to the game core's outbound
// port: events are addressed by clientID and reach whichever socket is
// currently bound to that identity.
type Notifier struct {
	registry *wsPkg.Registry
	log      zerolog.Logger
}

func NewNotifier(registry *wsPkg.Registry, log zerolog.Logger) *Notifier {
	return &Notifier{registry: registry, log: log}
}

func (n *Notifier) Send(clientID string, ev game.Event) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		n.log.Error().Err(err).Str("event", ev.Type).Msg("failed to marshal event")
		return false
	}
	return n.registry.Send(clientID, payload)
}
