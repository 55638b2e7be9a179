package game_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/krishanu7/navalclash/internal/game"
	"github.com/krishanu7/navalclash/internal/match"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events map[string][]game.Event
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{events: make(map[string][]game.Event)}
}

func (f *fakeNotifier) Send(clientID string, ev game.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[clientID] = append(f.events[clientID], ev)
	return true
}

func (f *fakeNotifier) count(clientID, evType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.events[clientID] {
		if ev.Type == evType {
			n++
		}
	}
	return n
}

func (f *fakeNotifier) last(clientID, evType string) (game.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	evs := f.events[clientID]
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == evType {
			return evs[i], true
		}
	}
	return game.Event{}, false
}

func (f *fakeNotifier) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = make(map[string][]game.Event)
}

type fakeSink struct {
	mu        sync.Mutex
	summaries []game.MatchSummary
}

func (f *fakeSink) RecordMatch(sum game.MatchSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, sum)
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.summaries)
}

func (f *fakeSink) first() game.MatchSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summaries[0]
}

func newTestService(grace time.Duration) (*game.Service, *fakeNotifier, *fakeSink) {
	notifier := newFakeNotifier()
	sink := &fakeSink{}
	svc := game.NewService(
		game.NewStore(zerolog.Nop()),
		match.NewQueue(),
		notifier,
		sink,
		grace,
		zerolog.Nop(),
	)
	return svc, notifier, sink
}

// joinedRoomID extracts the room id from the latest room_joined event.
func joinedRoomID(t *testing.T, n *fakeNotifier, clientID string) string {
	t.Helper()
	ev, ok := n.last(clientID, game.EvRoomJoined)
	require.True(t, ok, "expected a room_joined event for %s", clientID)
	data, ok := ev.Data.(game.RoomJoinedData)
	require.True(t, ok)
	return data.RoomID
}

// startBattle drives alice and bob all the way into BATTLE and forces
// alice to move first so tests are deterministic.
func startBattle(t *testing.T, svc *game.Service, n *fakeNotifier) *game.Room {
	t.Helper()

	svc.CreateRoom("alice", "c1", "", "Alice", "classic", false)
	roomID := joinedRoomID(t, n, "alice")
	svc.JoinSpecific("bob", "c2", "", "Bob", roomID)

	svc.SetRoomReady("alice", true)
	svc.SetRoomReady("bob", true)
	svc.StartMatch("alice")

	svc.SubmitFleet("alice", classicFleet())
	svc.SubmitFleet("bob", classicFleet())

	room, ok := svc.Store().FindByPlayer("alice")
	require.True(t, ok)
	require.Equal(t, game.PhaseBattle, room.Phase)
	room.Turn = "alice"
	n.reset()
	return room
}
