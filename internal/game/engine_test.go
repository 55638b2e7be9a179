package game_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishanu7/navalclash/internal/game"
)

func TestSubmitFleetRejectsInvalidGeometry(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)

	svc.CreateRoom("alice", "c1", "", "Alice", "classic", false)
	roomID := joinedRoomID(t, n, "alice")
	svc.JoinSpecific("bob", "c2", "", "Bob", roomID)
	svc.SetRoomReady("alice", true)
	svc.SetRoomReady("bob", true)
	svc.StartMatch("alice")

	bad := classicFleet()
	bad[0].Col = 6 // carrier runs off the board
	svc.SubmitFleet("alice", bad)

	ev, ok := n.last("alice", game.EvError)
	require.True(t, ok)
	assert.Equal(t, "invalid_fleet", ev.Data.(game.ErrorData).Code)

	room, _ := svc.Store().Get(roomID)
	assert.Equal(t, game.PhasePlacing, room.Phase, "rejected fleet leaves the room in placing")
	assert.False(t, room.Players[0].FleetReady)
	assert.Zero(t, n.count("bob", game.EvOpponentFleetReady))
}

func TestSubmitFleetDoesNotRevealGeometry(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)

	svc.CreateRoom("alice", "c1", "", "Alice", "classic", false)
	roomID := joinedRoomID(t, n, "alice")
	svc.JoinSpecific("bob", "c2", "", "Bob", roomID)
	svc.SetRoomReady("alice", true)
	svc.SetRoomReady("bob", true)
	svc.StartMatch("alice")

	svc.SubmitFleet("alice", classicFleet())

	ev, ok := n.last("bob", game.EvOpponentFleetReady)
	require.True(t, ok)
	assert.Nil(t, ev.Data, "the opponent learns readiness, never ship positions")
}

func TestUnreadyDuringPlacing(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)

	svc.CreateRoom("alice", "c1", "", "Alice", "classic", false)
	roomID := joinedRoomID(t, n, "alice")
	svc.JoinSpecific("bob", "c2", "", "Bob", roomID)
	svc.SetRoomReady("alice", true)
	svc.SetRoomReady("bob", true)
	svc.StartMatch("alice")

	svc.SubmitFleet("alice", classicFleet())
	svc.Unready("alice")

	room, _ := svc.Store().Get(roomID)
	assert.False(t, room.Players[0].FleetReady)
	assert.Equal(t, 1, n.count("bob", game.EvOpponentUnready))

	// Re-submitting still works and the battle starts normally.
	svc.SubmitFleet("alice", classicFleet())
	svc.SubmitFleet("bob", classicFleet())
	assert.Equal(t, game.PhaseBattle, room.Phase)
}

func TestUnreadyBeforePlacingDropped(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)

	svc.CreateRoom("alice", "c1", "", "Alice", "classic", false)
	roomID := joinedRoomID(t, n, "alice")
	svc.JoinSpecific("bob", "c2", "", "Bob", roomID)

	svc.Unready("alice")

	// A stale frame in the lobby is dropped, not answered.
	assert.Zero(t, n.count("alice", game.EvError))
	assert.Zero(t, n.count("bob", game.EvOpponentUnready))
}

func TestUnreadyRejectedInBattle(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)
	room := startBattle(t, svc, n)

	svc.Unready("alice")

	ev, ok := n.last("alice", game.EvError)
	require.True(t, ok)
	assert.Equal(t, "already_started", ev.Data.(game.ErrorData).Code)
	assert.True(t, room.Players[0].FleetReady)
}

func TestFireShotTurnExclusivity(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)
	room := startBattle(t, svc, n) // alice to move

	svc.FireShot("bob", 0, 0)

	assert.Zero(t, n.count("alice", game.EvShotProcessed))
	assert.Zero(t, n.count("bob", game.EvShotProcessed))
	alice := room.Players[0]
	bob := room.Players[1]
	assert.Empty(t, alice.ShotsAgainst, "an out-of-turn shot changes nothing")
	assert.Zero(t, bob.Stats.ShotsFired)
	assert.Equal(t, "alice", room.Turn)
}

func TestFireShotMissPassesTurn(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)
	room := startBattle(t, svc, n)

	svc.FireShot("alice", 9, 9) // empty water

	shot, ok := n.last("bob", game.EvShotProcessed)
	require.True(t, ok)
	assert.Equal(t, game.ResultMiss, shot.Data.(game.ShotProcessedData).Result)
	assert.Equal(t, "bob", room.Turn)

	turnEv, ok := n.last("bob", game.EvTurnChange)
	require.True(t, ok)
	assert.True(t, turnEv.Data.(game.TurnChangeData).YourTurn)
	turnEv, ok = n.last("alice", game.EvTurnChange)
	require.True(t, ok)
	assert.False(t, turnEv.Data.(game.TurnChangeData).YourTurn)
}

func TestFireShotHitKeepsTurn(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)
	room := startBattle(t, svc, n)

	svc.FireShot("alice", 4, 0) // destroyer bow

	shot, ok := n.last("alice", game.EvShotProcessed)
	require.True(t, ok)
	data := shot.Data.(game.ShotProcessedData)
	assert.Equal(t, game.ResultHit, data.Result)
	assert.Nil(t, data.SunkShip)
	assert.Equal(t, "alice", room.Turn, "a hit earns another shot")

	alice := room.Players[0]
	assert.Equal(t, 1, alice.Stats.ShotsFired)
	assert.Equal(t, 1, alice.Stats.Hits)
	assert.Zero(t, alice.Stats.Misses)
}

func TestFireShotSunkRevealsShape(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)
	room := startBattle(t, svc, n)

	svc.FireShot("alice", 4, 0)
	svc.FireShot("alice", 4, 1)

	shot, ok := n.last("bob", game.EvShotProcessed)
	require.True(t, ok)
	data := shot.Data.(game.ShotProcessedData)
	require.Equal(t, game.ResultSunk, data.Result)
	require.NotNil(t, data.SunkShip, "sinking reveals that ship's placement")
	assert.Equal(t, game.Destroyer, data.SunkShip.Type)
	assert.Equal(t, 2, data.SunkShip.Size)

	assert.Equal(t, "alice", room.Turn)
	assert.Equal(t, 1, room.Players[0].Stats.ShipsSunk)
}

func TestFireShotDoubleFireIsNoOp(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)
	room := startBattle(t, svc, n)

	svc.FireShot("alice", 4, 0)
	require.Equal(t, 1, n.count("alice", game.EvShotProcessed))

	svc.FireShot("alice", 4, 0)

	assert.Equal(t, 1, n.count("alice", game.EvShotProcessed), "second shot at the same cell is silent")
	assert.Equal(t, 1, room.Players[0].Stats.ShotsFired)
}

func TestFireShotOutOfBoundsDropped(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)
	room := startBattle(t, svc, n)

	svc.FireShot("alice", -1, 3)
	svc.FireShot("alice", 3, 10)

	assert.Zero(t, n.count("alice", game.EvShotProcessed))
	assert.Equal(t, "alice", room.Turn)
}

func TestVictoryEndsMatchOnce(t *testing.T) {
	svc, n, sink := newTestService(time.Minute)
	room := startBattle(t, svc, n)

	// Sink bob's whole fleet; every shot is a hit so the turn never leaves alice.
	for _, ship := range classicFleet() {
		for _, cell := range ship.Cells() {
			svc.FireShot("alice", cell.Row, cell.Col)
		}
	}

	assert.Equal(t, game.PhaseEnded, room.Phase)
	assert.Equal(t, 1, n.count("alice", game.EvPlayerVictory))
	assert.Equal(t, 1, n.count("bob", game.EvPlayerDefeat))
	assert.Zero(t, n.count("alice", game.EvPlayerDefeat))

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	sum := sink.first()
	assert.Equal(t, room.ID, sum.RoomID)
	assert.Equal(t, game.ReasonVictory, sum.EndReason)
	require.Len(t, sum.Players, 2)
	for _, pr := range sum.Players {
		switch pr.ClientID {
		case "alice":
			assert.Equal(t, "win", pr.Result)
			assert.Equal(t, 17, pr.Shots)
			assert.Equal(t, 5, pr.ShipsSunk)
		case "bob":
			assert.Equal(t, "loss", pr.Result)
		}
	}
}

func TestWinMonotonicity(t *testing.T) {
	svc, n, sink := newTestService(time.Minute)
	room := startBattle(t, svc, n)

	for _, ship := range classicFleet() {
		for _, cell := range ship.Cells() {
			svc.FireShot("alice", cell.Row, cell.Col)
		}
	}
	require.Equal(t, game.PhaseEnded, room.Phase)

	statsBefore := room.Players[0].Stats
	shotEvents := n.count("alice", game.EvShotProcessed)

	room.Turn = "alice"
	svc.FireShot("alice", 9, 9)

	assert.Equal(t, statsBefore, room.Players[0].Stats, "no shot mutates state after the match ended")
	assert.Equal(t, shotEvents, n.count("alice", game.EvShotProcessed))
	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
}

// randomFleet places the classic fleet at random valid positions.
func randomFleet(rng *rand.Rand) []game.Ship {
	for {
		ships := classicFleet()
		for i := range ships {
			ships[i].Row = rng.Intn(game.BoardSize)
			ships[i].Col = rng.Intn(game.BoardSize)
			if rng.Intn(2) == 0 {
				ships[i].Orientation = game.Horizontal
			} else {
				ships[i].Orientation = game.Vertical
			}
		}
		if game.ValidateFleet("classic", ships) == nil {
			return ships
		}
	}
}

// TestSunkIffFullyCovered fires at every board cell in random order
// against random fleets and checks that sunk is reported exactly when a
// ship's final cell is hit.
func TestSunkIffFullyCovered(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 10; round++ {
		svc, n, _ := newTestService(time.Minute)

		svc.CreateRoom("alice", "c1", "", "Alice", "classic", false)
		roomID := joinedRoomID(t, n, "alice")
		svc.JoinSpecific("bob", "c2", "", "Bob", roomID)
		svc.SetRoomReady("alice", true)
		svc.SetRoomReady("bob", true)
		svc.StartMatch("alice")

		fleet := randomFleet(rng)
		svc.SubmitFleet("alice", classicFleet())
		svc.SubmitFleet("bob", fleet)

		room, ok := svc.Store().FindByPlayer("alice")
		require.True(t, ok)
		bob := room.Players[1]

		cells := make([]game.Cell, 0, 100)
		for row := 0; row < game.BoardSize; row++ {
			for col := 0; col < game.BoardSize; col++ {
				cells = append(cells, game.Cell{Row: row, Col: col})
			}
		}
		rng.Shuffle(len(cells), func(i, j int) { cells[i], cells[j] = cells[j], cells[i] })

		sunkTypes := make(map[game.ShipType]bool)
		for _, cell := range cells {
			if room.Phase != game.PhaseBattle {
				break
			}
			room.Turn = "alice" // keep the shooter fixed for the sweep
			before := n.count("alice", game.EvShotProcessed)
			svc.FireShot("alice", cell.Row, cell.Col)
			if n.count("alice", game.EvShotProcessed) == before {
				continue
			}

			ev, _ := n.last("alice", game.EvShotProcessed)
			data := ev.Data.(game.ShotProcessedData)

			hitShip := bob.ShipAt(cell)
			if data.Result == game.ResultSunk {
				require.NotNil(t, hitShip)
				for _, c := range data.SunkShip.Cells() {
					assert.True(t, bob.ShotsAgainst[c], "a sunk ship must be fully covered")
				}
				assert.False(t, sunkTypes[data.SunkShip.Type], "no ship sinks twice")
				sunkTypes[data.SunkShip.Type] = true
			} else if hitShip != nil {
				require.Equal(t, game.ResultHit, data.Result)
				assert.False(t, bob.IsSunk(hitShip) && data.Result != game.ResultSunk)
			} else {
				require.Equal(t, game.ResultMiss, data.Result)
			}
		}

		assert.Len(t, sunkTypes, 5, "all five ships sink during a full-board sweep")
		assert.Equal(t, game.PhaseEnded, room.Phase)
	}
}

func TestRematchMigration(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)
	room := startBattle(t, svc, n)
	oldID := room.ID

	for _, ship := range classicFleet() {
		for _, cell := range ship.Cells() {
			svc.FireShot("alice", cell.Row, cell.Col)
		}
	}
	require.Equal(t, game.PhaseEnded, room.Phase)

	// Acceptance without a request from the other side is a no-op.
	svc.AcceptRematch("alice")
	assert.Equal(t, 0, n.count("alice", game.EvRematchStarted))

	svc.RequestRematch("bob")
	assert.Equal(t, 1, n.count("alice", game.EvRematchRequested))

	svc.AcceptRematch("alice")

	started, ok := n.last("alice", game.EvRematchStarted)
	require.True(t, ok)
	newID := started.Data.(game.RematchStartedData).RoomID
	assert.NotEqual(t, oldID, newID, "a rematch always allocates a fresh room")
	assert.Equal(t, 1, n.count("bob", game.EvRematchStarted))

	_, ok = svc.Store().Get(oldID)
	assert.False(t, ok, "stale references to the old room must fail")

	newRoom, ok := svc.Store().Get(newID)
	require.True(t, ok)
	assert.Equal(t, game.PhaseWaiting, newRoom.Phase)
	require.Len(t, newRoom.Players, 2)
	for _, p := range newRoom.Players {
		assert.False(t, p.FleetReady)
		assert.False(t, p.LobbyReady)
		assert.Empty(t, p.Fleet)
		assert.Empty(t, p.ShotsAgainst)
		assert.Zero(t, p.Stats)
	}

	// The index follows the players to the new room.
	byAlice, ok := svc.Store().FindByPlayer("alice")
	require.True(t, ok)
	assert.Same(t, newRoom, byAlice)
}

func TestRematchRequestBeforeEndIgnored(t *testing.T) {
	svc, n, _ := newTestService(time.Minute)
	startBattle(t, svc, n)

	svc.RequestRematch("alice")
	assert.Zero(t, n.count("bob", game.EvRematchRequested))
}
