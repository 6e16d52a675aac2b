package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTurnContext(n int) *RoomContext {
	gc := &RoomContext{
		Code:  "ARC-TEST",
		Votes: make(map[string]string),
		Hooks: NopHooks{},
	}

	for i := 0; i < n; i++ {
		gc.Players = append(gc.Players, &Player{
			ID:    string(rune('a' + i)),
			Name:  "player-" + string(rune('a'+i)),
			Alive: true,
		})
	}

	return gc
}

func TestResetTurnPicksFirstLivingUnspoken(t *testing.T) {
	gc := newTurnContext(4)
	gc.Players[0].Alive = false
	gc.Players[1].Spoken = true

	require.True(t, gc.ResetTurn())
	assert.Equal(t, 2, gc.TurnIdx)
	assert.Equal(t, gc.Players[2], gc.CurrentTurnPlayer())
}

func TestResetTurnNooneLeft(t *testing.T) {
	gc := newTurnContext(2)
	gc.Players[0].Spoken = true
	gc.Players[1].Alive = false

	assert.False(t, gc.ResetTurn())
	assert.Nil(t, gc.CurrentTurnPlayer())
}

func TestAdvanceTurnSkipsEliminated(t *testing.T) {
	gc := newTurnContext(4)
	gc.Players[1].Alive = false
	gc.TurnIdx = 0
	gc.Players[0].Spoken = true

	next, roundDone := gc.AdvanceTurn()

	require.False(t, roundDone)
	assert.Equal(t, "c", next.ID)
	assert.Equal(t, 2, gc.TurnIdx)
}

func TestAdvanceTurnWrapsAround(t *testing.T) {
	gc := newTurnContext(3)
	gc.TurnIdx = 2
	gc.Players[1].Spoken = true
	gc.Players[2].Spoken = true

	next, roundDone := gc.AdvanceTurn()

	require.False(t, roundDone)
	assert.Equal(t, "a", next.ID)
}

func TestAdvanceTurnRoundDone(t *testing.T) {
	gc := newTurnContext(3)
	for _, p := range gc.Players {
		p.Spoken = true
	}

	next, roundDone := gc.AdvanceTurn()

	assert.True(t, roundDone)
	assert.Nil(t, next)
	assert.True(t, gc.AllSpoken())
}

func TestFixTurnAfterRemovalBeforePointer(t *testing.T) {
	gc := newTurnContext(4)
	gc.Players[0].Spoken = true
	gc.TurnIdx = 2

	// Player at index 1 leaves: the pointer must keep tracking the same
	// player.
	turnID := gc.Players[2].ID
	gc.Players = append(gc.Players[:1], gc.Players[2:]...)

	current, roundDone := gc.FixTurnAfterRemoval(1)

	require.False(t, roundDone)
	assert.Equal(t, turnID, current.ID)
	assert.Equal(t, 1, gc.TurnIdx)
}

func TestFixTurnAfterRemovalOfTurnHolder(t *testing.T) {
	gc := newTurnContext(3)
	gc.Players[0].Spoken = true
	gc.TurnIdx = 1

	// The player currently speaking leaves.
	gc.Players = append(gc.Players[:1], gc.Players[2:]...)

	current, roundDone := gc.FixTurnAfterRemoval(1)

	require.False(t, roundDone)
	assert.Equal(t, "c", current.ID)
}

func TestFixTurnAfterRemovalFinishesRound(t *testing.T) {
	gc := newTurnContext(3)
	gc.Players[0].Spoken = true
	gc.Players[1].Spoken = true
	gc.TurnIdx = 2

	// The last unspoken player leaves, so the round is complete.
	gc.Players = gc.Players[:2]

	_, roundDone := gc.FixTurnAfterRemoval(2)

	assert.True(t, roundDone)
}
