package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRoom drives a room machine synchronously: intents go straight
// through dispatch instead of the event loop, so every assertion sees a
// settled state.
type testRoom struct {
	t  *testing.T
	rm *RoomMachine
}

func testOptions() RoomOptions {
	return RoomOptions{
		MaxPlayers:   10,
		MinPlayers:   3,
		ImpostorRule: IMPOSTOR_RULE_SCALED,
		VoteTimeout:  time.Minute,
		TurnSecs:     40,
	}
}

func newTestRoom(t *testing.T, opts RoomOptions) *testRoom {
	t.Helper()

	rm := NewRoomMachine("ARC-TEST", opts, NopHooks{}, nil)
	rm.handler.OnEnter(rm.ctx)

	return &testRoom{t: t, rm: rm}
}

func (tr *testRoom) join(name string) (string, chan ResponseWrapper) {
	tr.t.Helper()

	id := GenID()
	respCh := make(chan ResponseWrapper, 64)

	tr.rm.dispatch(RequestWrapper{
		ReqType:  REQ_JOIN_ROOM,
		SenderID: id,
		NativeData: &JoinRoomRequest{
			Name:     name,
			PlayerID: id,
			RespCh:   respCh,
		},
	})

	return id, respCh
}

func (tr *testRoom) leave(playerID string, respCh chan ResponseWrapper) {
	tr.t.Helper()

	tr.rm.dispatch(RequestWrapper{
		ReqType:  REQ_LEAVE_ROOM,
		SenderID: playerID,
		NativeData: &LeaveRequest{
			PlayerID: playerID,
			RespCh:   respCh,
		},
	})
}

func (tr *testRoom) send(reqType, senderID string, payload any) {
	tr.t.Helper()

	wrapper := RequestWrapper{
		ReqType:  reqType,
		SenderID: senderID,
	}
	if payload != nil {
		wrapper.Data = mustMarshal(payload)
	}

	tr.rm.dispatch(wrapper)
}

func (tr *testRoom) phase() string {
	return tr.rm.ctx.Phase
}

func (tr *testRoom) ctx() *RoomContext {
	return tr.rm.ctx
}

// drainResponses empties a buffered response channel without blocking.
func drainResponses(ch chan ResponseWrapper) []ResponseWrapper {
	var resps []ResponseWrapper

	for {
		select {
		case resp := <-ch:
			resps = append(resps, resp)
		default:
			return resps
		}
	}
}

func lastOfType(resps []ResponseWrapper, respType string) *ResponseWrapper {
	for i := len(resps) - 1; i >= 0; i-- {
		if resps[i].RespType == respType {
			return &resps[i]
		}
	}

	return nil
}

func TestJoinMakesFirstMemberHost(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, hostCh := tr.join("alice")
	_, _ = tr.join("bob")

	assert.Equal(t, hostID, tr.ctx().HostID)

	resps := drainResponses(hostCh)
	joined := lastOfType(resps, RESP_JOINED)

	require.NotNil(t, joined)
	assert.True(t, joined.Data.(JoinedResponse).IsHost)

	// Both joins broadcast fresh state to everyone already in.
	state := lastOfType(resps, RESP_ROOM_STATE)
	require.NotNil(t, state)
	assert.Len(t, state.Data.(RoomStateNotification).Players, 2)
}

func TestJoinRejectsBlankName(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	_, respCh := tr.join("   ")

	resps := drainResponses(respCh)
	errResp := lastOfType(resps, RESP_ERROR)

	require.NotNil(t, errResp)
	assert.Equal(t, ErrInvalidName.Error(), errResp.ErrMsg)
	assert.Empty(t, tr.ctx().Players)
}

func TestJoinRejectsWhenFull(t *testing.T) {
	opts := testOptions()
	opts.MaxPlayers = 3

	tr := newTestRoom(t, opts)

	tr.join("alice")
	tr.join("bob")
	tr.join("carol")

	_, respCh := tr.join("dave")

	resps := drainResponses(respCh)
	errResp := lastOfType(resps, RESP_ERROR)

	require.NotNil(t, errResp)
	assert.Equal(t, ErrRoomFull.Error(), errResp.ErrMsg)
	assert.Len(t, tr.ctx().Players, 3)
}

func TestStartGameHostOnly(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	tr.join("alice")
	bobID, bobCh := tr.join("bob")
	tr.join("carol")

	tr.send(REQ_START_GAME, bobID, nil)

	resps := drainResponses(bobCh)
	errResp := lastOfType(resps, RESP_ERROR)

	require.NotNil(t, errResp)
	assert.Equal(t, ErrNotHost.Error(), errResp.ErrMsg)
	assert.Equal(t, PHASE_LOBBY, tr.phase())
}

func TestStartGameNeedsEnoughPlayers(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, hostCh := tr.join("alice")
	tr.join("bob")

	tr.send(REQ_START_GAME, hostID, nil)

	resps := drainResponses(hostCh)
	errResp := lastOfType(resps, RESP_ERROR)

	require.NotNil(t, errResp)
	assert.Equal(t, ErrInsufficientPlayers.Error(), errResp.ErrMsg)
	assert.Equal(t, PHASE_LOBBY, tr.phase())
}

func TestStartGameDealsRolesAndWord(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, hostCh := tr.join("alice")
	_, bobCh := tr.join("bob")
	_, carolCh := tr.join("carol")

	tr.send(REQ_START_GAME, hostID, nil)

	require.Equal(t, PHASE_SPEAKING, tr.phase())
	assert.Equal(t, 1, tr.ctx().Round)
	assert.NotEmpty(t, tr.ctx().Word)
	assert.Equal(t, 1, tr.ctx().CountAliveWithRole(ROLE_IMPOSTOR))
	assert.Equal(t, 2, tr.ctx().CountAliveWithRole(ROLE_CITIZEN))

	// The rotation starts at the earliest joiner.
	require.NotNil(t, tr.ctx().CurrentTurnPlayer())
	assert.Equal(t, tr.ctx().Players[0].ID, tr.ctx().CurrentTurnPlayer().ID)

	for _, ch := range []chan ResponseWrapper{hostCh, bobCh, carolCh} {
		resps := drainResponses(ch)

		role := lastOfType(resps, RESP_ROLE)
		require.NotNil(t, role)

		notif := role.Data.(RoleNotification)
		if notif.Role == ROLE_CITIZEN {
			assert.Equal(t, tr.ctx().Word, notif.Word)
		} else {
			assert.Empty(t, notif.Word)
		}

		started := lastOfType(resps, RESP_ROUND_STARTED)
		require.NotNil(t, started)
		assert.Equal(t,
			len([]rune(tr.ctx().Word)),
			started.Data.(RoundStartedNotification).WordLength,
		)
	}
}

func TestEndTurnOutOfOrderRejected(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, _ := tr.join("alice")
	bobID, bobCh := tr.join("bob")
	tr.join("carol")

	tr.send(REQ_START_GAME, hostID, nil)
	require.Equal(t, PHASE_SPEAKING, tr.phase())

	// The turn belongs to alice, not bob.
	tr.send(REQ_END_TURN, bobID, nil)

	resps := drainResponses(bobCh)
	errResp := lastOfType(resps, RESP_ERROR)

	require.NotNil(t, errResp)
	assert.Equal(t, ErrNotYourTurn.Error(), errResp.ErrMsg)
	assert.Equal(t, hostID, tr.ctx().CurrentTurnPlayer().ID)
}

func TestTurnRotationReachesVoting(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, hostCh := tr.join("alice")
	tr.join("bob")
	tr.join("carol")

	tr.send(REQ_START_GAME, hostID, nil)

	for i := 0; i < 3; i++ {
		cur := tr.ctx().CurrentTurnPlayer()
		require.NotNil(t, cur, "turn %d", i)

		tr.send(REQ_END_TURN, cur.ID, nil)
	}

	assert.Equal(t, PHASE_VOTING, tr.phase())

	resps := drainResponses(hostCh)
	started := lastOfType(resps, RESP_VOTING_STARTED)

	require.NotNil(t, started)

	notif := started.Data.(VotingStartedNotification)
	assert.Len(t, notif.Candidates, 3)
	assert.Equal(t, 60, notif.TimeoutSecs)
}

func TestForceTurnHostProxy(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, _ := tr.join("alice")
	bobID, bobCh := tr.join("bob")
	tr.join("carol")

	tr.send(REQ_START_GAME, hostID, nil)

	tr.send(REQ_FORCE_TURN, bobID, nil)

	resps := drainResponses(bobCh)
	errResp := lastOfType(resps, RESP_ERROR)
	require.NotNil(t, errResp)
	assert.Equal(t, ErrNotHost.Error(), errResp.ErrMsg)

	// The host pushes the stalled turn forward.
	tr.send(REQ_FORCE_TURN, hostID, nil)
	assert.Equal(t, tr.ctx().Players[1].ID, tr.ctx().CurrentTurnPlayer().ID)
}

func TestJoinRejectedMidRound(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, _ := tr.join("alice")
	tr.join("bob")
	tr.join("carol")

	tr.send(REQ_START_GAME, hostID, nil)
	require.Equal(t, PHASE_SPEAKING, tr.phase())

	_, respCh := tr.join("dave")

	resps := drainResponses(respCh)
	errResp := lastOfType(resps, RESP_ERROR)

	require.NotNil(t, errResp)
	assert.Equal(t, ErrWrongPhase.Error(), errResp.ErrMsg)
	assert.Len(t, tr.ctx().Players, 3)
}

func TestHostMigratesOnLeave(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, hostCh := tr.join("alice")
	bobID, bobCh := tr.join("bob")
	tr.join("carol")

	tr.leave(hostID, hostCh)

	assert.Equal(t, bobID, tr.ctx().HostID)

	resps := drainResponses(bobCh)
	left := lastOfType(resps, RESP_PLAYER_LEFT)

	require.NotNil(t, left)

	notif := left.Data.(PlayerLeftNotification)
	assert.Equal(t, hostID, notif.PlayerID)
	assert.Equal(t, bobID, notif.NewHostID)
}

func TestImpostorLeaveMidRoundEndsGame(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, _ := tr.join("alice")
	tr.join("bob")
	tr.join("carol")

	tr.send(REQ_START_GAME, hostID, nil)
	require.Equal(t, PHASE_SPEAKING, tr.phase())

	var impostor *Player
	for _, p := range tr.ctx().Players {
		if p.Role == ROLE_IMPOSTOR {
			impostor = p
			break
		}
	}
	require.NotNil(t, impostor)

	tr.leave(impostor.ID, impostor.RespCh)

	assert.Equal(t, PHASE_FINISHED, tr.phase())

	// Any survivor sees the reveal.
	resps := drainResponses(tr.ctx().Players[0].RespCh)
	over := lastOfType(resps, RESP_GAME_OVER)
	require.NotNil(t, over)
	assert.Equal(t, RESULT_CITIZENS_WIN, over.Data.(GameOverNotification).Winner)
}

func TestVotingCitizensWinAndRestart(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, hostCh := tr.join("alice")
	tr.join("bob")
	tr.join("carol")

	tr.send(REQ_START_GAME, hostID, nil)
	tr.send(REQ_START_VOTING, hostID, nil)
	require.Equal(t, PHASE_VOTING, tr.phase())

	var impostorID string
	for _, p := range tr.ctx().Players {
		if p.Role == ROLE_IMPOSTOR {
			impostorID = p.ID
			break
		}
	}
	require.NotEmpty(t, impostorID)

	for _, p := range tr.ctx().AlivePlayers() {
		tr.send(REQ_CAST_VOTE, p.ID, CastVoteRequest{TargetID: impostorID})
	}

	require.Equal(t, PHASE_FINISHED, tr.phase())
	assert.False(t, tr.ctx().PlayerByID(impostorID).Alive)

	resps := drainResponses(hostCh)

	result := lastOfType(resps, RESP_VOTING_RESULT)
	require.NotNil(t, result)

	resNotif := result.Data.(VotingResultNotification)
	assert.Equal(t, VOTE_REASON_ALL_VOTED, resNotif.Reason)
	require.NotNil(t, resNotif.Eliminated)
	assert.Equal(t, impostorID, resNotif.Eliminated.ID)
	assert.True(t, resNotif.WasImpostor)

	over := lastOfType(resps, RESP_GAME_OVER)
	require.NotNil(t, over)

	overNotif := over.Data.(GameOverNotification)
	assert.Equal(t, RESULT_CITIZENS_WIN, overNotif.Winner)
	assert.NotEmpty(t, overNotif.Word)
	assert.Len(t, overNotif.Roles, 3)

	// The host deals a fresh game with everyone revived.
	tr.send(REQ_START_GAME, hostID, nil)

	assert.Equal(t, PHASE_SPEAKING, tr.phase())
	assert.Equal(t, 1, tr.ctx().Round)
	assert.Equal(t, 3, tr.ctx().CountAlive())
}

func TestVotingTieEliminatesNobodyAndContinues(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, hostCh := tr.join("alice")
	bobID, _ := tr.join("bob")
	carolID, _ := tr.join("carol")

	tr.send(REQ_START_GAME, hostID, nil)
	tr.send(REQ_START_VOTING, hostID, nil)

	tr.send(REQ_CAST_VOTE, hostID, CastVoteRequest{TargetID: bobID})
	tr.send(REQ_CAST_VOTE, bobID, CastVoteRequest{TargetID: hostID})
	// The abstention still counts toward "everyone voted".
	tr.send(REQ_CAST_VOTE, carolID, CastVoteRequest{TargetID: ""})

	assert.Equal(t, PHASE_SPEAKING, tr.phase())
	assert.Equal(t, 2, tr.ctx().Round)
	assert.Equal(t, 3, tr.ctx().CountAlive())

	resps := drainResponses(hostCh)
	result := lastOfType(resps, RESP_VOTING_RESULT)

	require.NotNil(t, result)
	assert.Nil(t, result.Data.(VotingResultNotification).Eliminated)
}

func TestVoteOverwritesPreviousVote(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, _ := tr.join("alice")
	bobID, _ := tr.join("bob")
	carolID, _ := tr.join("carol")

	tr.send(REQ_START_GAME, hostID, nil)
	tr.send(REQ_START_VOTING, hostID, nil)

	tr.send(REQ_CAST_VOTE, hostID, CastVoteRequest{TargetID: bobID})
	tr.send(REQ_CAST_VOTE, hostID, CastVoteRequest{TargetID: carolID})

	assert.Equal(t, map[string]string{hostID: carolID}, tr.ctx().Votes)
}

func TestStaleVoteTimeoutIgnored(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, _ := tr.join("alice")
	tr.join("bob")
	tr.join("carol")

	tr.send(REQ_START_GAME, hostID, nil)
	tr.send(REQ_START_VOTING, hostID, nil)
	require.Equal(t, PHASE_VOTING, tr.phase())

	// A timer armed for an earlier voting phase fires late.
	tr.rm.dispatch(RequestWrapper{
		ReqType: REQ_TIMEOUT,
		NativeData: &TimeoutRequest{
			Phase: PHASE_VOTING,
			Epoch: tr.ctx().voteEpoch - 1,
		},
	})

	assert.Equal(t, PHASE_VOTING, tr.phase())

	// The current timer resolves the phase with whatever came in.
	tr.rm.dispatch(RequestWrapper{
		ReqType: REQ_TIMEOUT,
		NativeData: &TimeoutRequest{
			Phase: PHASE_VOTING,
			Epoch: tr.ctx().voteEpoch,
		},
	})

	assert.Equal(t, PHASE_SPEAKING, tr.phase())
}

func TestEliminatedPlayerCannotVote(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, _ := tr.join("alice")
	tr.join("bob")
	tr.join("carol")
	tr.join("dave")
	tr.join("erin")

	tr.send(REQ_START_GAME, hostID, nil)

	// Kill a citizen by hand so the game is still undecided.
	var dead *Player
	for _, p := range tr.ctx().Players {
		if p.Role == ROLE_CITIZEN && p.ID != hostID {
			dead = p
			break
		}
	}
	require.NotNil(t, dead)
	dead.Alive = false

	tr.send(REQ_START_VOTING, hostID, nil)
	require.Equal(t, PHASE_VOTING, tr.phase())

	tr.send(REQ_CAST_VOTE, dead.ID, CastVoteRequest{TargetID: hostID})

	resps := drainResponses(dead.RespCh)
	errResp := lastOfType(resps, RESP_ERROR)

	require.NotNil(t, errResp)
	assert.Equal(t, ErrWrongPhase.Error(), errResp.ErrMsg)
	assert.Empty(t, tr.ctx().Votes)
}

func TestLeaveOfLastStragglerResolvesVote(t *testing.T) {
	tr := newTestRoom(t, testOptions())

	hostID, _ := tr.join("alice")
	tr.join("bob")
	tr.join("carol")
	tr.join("dave")
	tr.join("erin")

	tr.send(REQ_START_GAME, hostID, nil)
	tr.send(REQ_START_VOTING, hostID, nil)

	var impostorID string
	var straggler *Player
	for _, p := range tr.ctx().Players {
		if p.Role == ROLE_IMPOSTOR {
			impostorID = p.ID
		} else if straggler == nil {
			straggler = p
		}
	}
	require.NotEmpty(t, impostorID)
	require.NotNil(t, straggler)

	for _, p := range tr.ctx().AlivePlayers() {
		if p.ID != straggler.ID {
			tr.send(REQ_CAST_VOTE, p.ID, CastVoteRequest{TargetID: impostorID})
		}
	}

	require.Equal(t, PHASE_VOTING, tr.phase())

	// The straggler never voted; their departure closes the count and
	// the unanimous vote on the impostor ends the game.
	tr.leave(straggler.ID, straggler.RespCh)

	assert.Equal(t, PHASE_FINISHED, tr.phase())
	assert.False(t, tr.ctx().PlayerByID(impostorID).Alive)
}
