package game

import (
	"strings"

	"go.uber.org/zap"
)

// A game moves through four phases:
// 1. Lobby: players gather, the host starts the game.
// 2. Speaking: living players take turns saying one word each.
// 3. Voting: living players vote on who the impostor is.
// 4. Finished: a side has won; the host may start a fresh game.
const (
	PHASE_LOBBY    = "Lobby"
	PHASE_SPEAKING = "Speaking"
	PHASE_VOTING   = "Voting"
	PHASE_FINISHED = "Finished"
)

type StageHandler interface {
	Stage() string

	OnEnter(gc *RoomContext)
	OnHandle(gc *RoomContext, req RequestWrapper) error
	OnExit(gc *RoomContext)

	SetOnSwitch(func(nextPhase string))
}

// handleJoin admits a new member. Shared by the lobby and finished
// stages; the in-round stages reject joins to keep the role invariant.
func handleJoin(gc *RoomContext, req *JoinRoomRequest) error {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ErrInvalidName
	}

	if len(gc.Players) >= gc.Opts.MaxPlayers {
		return ErrRoomFull
	}

	playerID := req.PlayerID
	if playerID == "" {
		playerID = GenID()
	}

	player := &Player{
		ID:     playerID,
		Name:   name,
		Role:   ROLE_UNSET,
		Alive:  true,
		RespCh: req.RespCh,
	}

	gc.Players = append(gc.Players, player)

	// The first member is the host.
	if gc.HostID == "" {
		gc.HostID = player.ID
	}

	gc.UnicastResp(player.ID, WrapResponse(
		RESP_JOINED,
		JoinedResponse{
			RoomCode: gc.Code,
			PlayerID: player.ID,
			IsHost:   gc.HostID == player.ID,
			Phase:    gc.Phase,
			Players:  gc.PublicPlayers(),
		},
	))

	gc.BroadcastState()

	zap.L().Info(
		"player joined room",
		zap.String("room_code", gc.Code),
		zap.String("player_id", player.ID),
		zap.String("player_name", player.Name),
	)

	return nil
}

// handleLeave removes a departing member, migrates the host, and tells
// the survivors. Phase-specific repair (turn pointer, vote recheck,
// win conditions) stays with the calling stage.
func handleLeave(gc *RoomContext, req *LeaveRequest) (removedIdx int, ok bool) {
	removedIdx = -1

	for i, p := range gc.Players {
		if p.ID == req.PlayerID {
			removedIdx = i
			break
		}
	}

	if removedIdx == -1 {
		zap.L().Warn(
			"leave for unknown player",
			zap.String("room_code", gc.Code),
			zap.String("player_id", req.PlayerID),
		)
		return -1, false
	}

	player := gc.Players[removedIdx]
	gc.Players = append(gc.Players[:removedIdx], gc.Players[removedIdx+1:]...)
	delete(gc.Votes, player.ID)

	close(player.RespCh)

	newHostID := ""
	if gc.HostID == player.ID && len(gc.Players) > 0 {
		// Promote the earliest remaining member.
		gc.HostID = gc.Players[0].ID
		newHostID = gc.HostID
	}

	zap.L().Info(
		"player left room",
		zap.String("room_code", gc.Code),
		zap.String("player_id", player.ID),
		zap.String("player_name", player.Name),
		zap.String("new_host_id", newHostID),
	)

	if len(gc.Players) == 0 {
		return removedIdx, true
	}

	gc.BroadcastResp(WrapResponse(
		RESP_PLAYER_LEFT,
		PlayerLeftNotification{
			PlayerID:   player.ID,
			PlayerName: player.Name,
			NewHostID:  newHostID,
		},
	))
	gc.BroadcastState()

	return removedIdx, true
}

// Lobby: the initial stage, members gather here.
type lobbyStageHandler struct {
	onSwitch func(string)
}

func NewLobbyStageHandler() *lobbyStageHandler {
	return &lobbyStageHandler{}
}

func (lsh *lobbyStageHandler) Stage() string {
	return PHASE_LOBBY
}

func (lsh *lobbyStageHandler) OnEnter(gc *RoomContext) {
	gc.Phase = PHASE_LOBBY
	gc.Word = ""
	gc.Votes = make(map[string]string)
}

func (lsh *lobbyStageHandler) OnHandle(gc *RoomContext, req RequestWrapper) error {
	if jreq := TryUnwrapJoinRoomRequest(req); jreq != nil {
		return handleJoin(gc, jreq)
	}

	if lreq := TryUnwrapLeaveRequest(req); lreq != nil {
		handleLeave(gc, lreq)
		return nil
	}

	if sreq := TryUnwrapStartGameRequest(req); sreq != nil {
		if req.SenderID != gc.HostID {
			return ErrNotHost
		}

		if len(gc.Players) < gc.Opts.MinPlayers {
			return ErrInsufficientPlayers
		}

		lsh.onSwitch(PHASE_SPEAKING)

		return nil
	}

	return ErrWrongPhase
}

func (lsh *lobbyStageHandler) OnExit(gc *RoomContext) {
}

func (lsh *lobbyStageHandler) SetOnSwitch(onSwitch func(string)) {
	lsh.onSwitch = onSwitch
}

// Speaking: every entry deals a fresh round (roles re-randomized among
// survivors, a fresh word) and rotates turns until all living players
// have spoken.
type speakingStageHandler struct {
	onSwitch func(string)
}

func NewSpeakingStageHandler() *speakingStageHandler {
	return &speakingStageHandler{}
}

func (ssh *speakingStageHandler) Stage() string {
	return PHASE_SPEAKING
}

func (ssh *speakingStageHandler) OnEnter(gc *RoomContext) {
	gc.Phase = PHASE_SPEAKING
	gc.Round++
	gc.Votes = make(map[string]string)

	AssignRolesAndWord(gc)
	gc.ResetTurn()

	// Targeted reveal: each living player learns only their own role,
	// and only citizens learn the word.
	for _, p := range gc.AlivePlayers() {
		gc.UnicastResp(p.ID, WrapResponse(
			RESP_ROLE,
			RoleNotification{
				Role: p.Role,
				Word: p.Word,
			},
		))
	}

	turnID := ""
	if cur := gc.CurrentTurnPlayer(); cur != nil {
		turnID = cur.ID
	}

	gc.BroadcastResp(WrapResponse(
		RESP_ROUND_STARTED,
		RoundStartedNotification{
			Round:        gc.Round,
			WordLength:   len([]rune(gc.Word)),
			TurnPlayerID: turnID,
		},
	))
	gc.BroadcastState()

	zap.L().Info(
		"round started",
		zap.String("room_code", gc.Code),
		zap.Int("round", gc.Round),
		zap.Int("players", gc.CountAlive()),
	)
}

// markSpokenAndAdvance finishes the current player's turn and moves the
// rotation forward, switching to voting when the round is complete.
func (ssh *speakingStageHandler) markSpokenAndAdvance(gc *RoomContext, cur *Player) {
	cur.Spoken = true

	gc.BroadcastResp(WrapResponse(
		RESP_PLAYER_SPOKEN,
		PlayerSpokenNotification{PlayerID: cur.ID},
	))

	if _, roundDone := gc.AdvanceTurn(); roundDone {
		ssh.onSwitch(PHASE_VOTING)
		return
	}

	gc.BroadcastState()
}

func (ssh *speakingStageHandler) OnHandle(gc *RoomContext, req RequestWrapper) error {
	if ereq := TryUnwrapEndTurnRequest(req); ereq != nil {
		cur := gc.CurrentTurnPlayer()
		if cur == nil || cur.ID != req.SenderID {
			return ErrNotYourTurn
		}

		ssh.markSpokenAndAdvance(gc, cur)

		return nil
	}

	if freq := TryUnwrapForceTurnRequest(req); freq != nil {
		// The host advances idle players as a proxy; clients never
		// auto-advance on their own countdown.
		if req.SenderID != gc.HostID {
			return ErrNotHost
		}

		cur := gc.CurrentTurnPlayer()
		if cur == nil {
			return ErrWrongPhase
		}

		ssh.markSpokenAndAdvance(gc, cur)

		return nil
	}

	if vreq := TryUnwrapStartVotingRequest(req); vreq != nil {
		if req.SenderID != gc.HostID {
			return ErrNotHost
		}

		ssh.onSwitch(PHASE_VOTING)

		return nil
	}

	if lreq := TryUnwrapLeaveRequest(req); lreq != nil {
		removedIdx, ok := handleLeave(gc, lreq)
		if !ok || len(gc.Players) == 0 {
			return nil
		}

		// A role holder left mid-round: the balance may already decide
		// the game.
		if _, over := Winner(gc); over {
			ssh.onSwitch(PHASE_FINISHED)
			return nil
		}

		if _, roundDone := gc.FixTurnAfterRemoval(removedIdx); roundDone {
			ssh.onSwitch(PHASE_VOTING)
			return nil
		}

		gc.BroadcastState()

		return nil
	}

	if TryUnwrapJoinRoomRequest(req) != nil {
		return ErrWrongPhase
	}

	return ErrWrongPhase
}

func (ssh *speakingStageHandler) OnExit(gc *RoomContext) {
}

func (ssh *speakingStageHandler) SetOnSwitch(onSwitch func(string)) {
	ssh.onSwitch = onSwitch
}

// Voting: living players each cast one vote (revotes overwrite), with a
// deferred timeout closing the phase for stragglers.
type votingStageHandler struct {
	onSwitch func(string)
}

func NewVotingStageHandler() *votingStageHandler {
	return &votingStageHandler{}
}

func (vsh *votingStageHandler) Stage() string {
	return PHASE_VOTING
}

func (vsh *votingStageHandler) OnEnter(gc *RoomContext) {
	gc.Phase = PHASE_VOTING
	gc.Votes = make(map[string]string)

	candidates := make([]PublicPlayer, 0, len(gc.Players))
	for _, p := range gc.AlivePlayers() {
		candidates = append(candidates, PublicPlayer{
			ID:    p.ID,
			Name:  p.Name,
			Alive: true,
		})
	}

	gc.BroadcastResp(WrapResponse(
		RESP_VOTING_STARTED,
		VotingStartedNotification{
			Candidates:  candidates,
			TimeoutSecs: int(gc.Opts.VoteTimeout.Seconds()),
		},
	))
	gc.BroadcastState()

	gc.SetVoteTimeout(gc.Opts.VoteTimeout)
}

func (vsh *votingStageHandler) OnHandle(gc *RoomContext, req RequestWrapper) error {
	if treq := TryUnwrapTimeoutRequest(req); treq != nil {
		if treq.Phase != PHASE_VOTING || treq.Epoch != gc.voteEpoch {
			// Stale timer from an earlier voting phase.
			return nil
		}

		resolveVotes(gc, VOTE_REASON_TIMEOUT, vsh.onSwitch)

		return nil
	}

	if creq := TryUnwrapCastVoteRequest(req); creq != nil {
		voter := gc.PlayerByID(req.SenderID)
		if voter == nil || !voter.Alive {
			return ErrWrongPhase
		}

		// Re-votes overwrite: exactly one entry per caster.
		gc.Votes[voter.ID] = creq.TargetID

		gc.BroadcastResp(WrapResponse(
			RESP_VOTE_REGISTERED,
			VoteRegisteredNotification{
				VoterID:  voter.ID,
				TargetID: creq.TargetID,
			},
		))

		if len(gc.Votes) >= gc.CountAlive() {
			resolveVotes(gc, VOTE_REASON_ALL_VOTED, vsh.onSwitch)
		}

		return nil
	}

	if lreq := TryUnwrapLeaveRequest(req); lreq != nil {
		_, ok := handleLeave(gc, lreq)
		if !ok || len(gc.Players) == 0 {
			return nil
		}

		if _, over := Winner(gc); over {
			vsh.onSwitch(PHASE_FINISHED)
			return nil
		}

		// The departure may have been the last straggler.
		if len(gc.Votes) >= gc.CountAlive() {
			resolveVotes(gc, VOTE_REASON_ALL_VOTED, vsh.onSwitch)
		}

		return nil
	}

	if TryUnwrapJoinRoomRequest(req) != nil {
		return ErrWrongPhase
	}

	return ErrWrongPhase
}

func (vsh *votingStageHandler) OnExit(gc *RoomContext) {
	gc.ClearVoteTimeout()
}

func (vsh *votingStageHandler) SetOnSwitch(onSwitch func(string)) {
	vsh.onSwitch = onSwitch
}

// Finished: a side has won. The room survives and the host may deal a
// fresh game with everyone revived.
type finishedStageHandler struct {
	onSwitch func(string)
}

func NewFinishedStageHandler() *finishedStageHandler {
	return &finishedStageHandler{}
}

func (fsh *finishedStageHandler) Stage() string {
	return PHASE_FINISHED
}

func (fsh *finishedStageHandler) OnEnter(gc *RoomContext) {
	gc.Phase = PHASE_FINISHED

	winner, _ := Winner(gc)
	if winner == "" {
		// Reached only via resolution or departures, but don't trust it.
		winner = RESULT_CITIZENS_WIN
	}

	roles := make(map[string]string, len(gc.Players))
	for _, p := range gc.Players {
		roles[p.ID] = p.Role
	}

	gc.BroadcastResp(WrapResponse(
		RESP_GAME_OVER,
		GameOverNotification{
			Winner: winner,
			Word:   gc.Word,
			Roles:  roles,
		},
	))
	gc.BroadcastState()

	zap.L().Info(
		"game over",
		zap.String("room_code", gc.Code),
		zap.String("winner", winner),
	)
}

func (fsh *finishedStageHandler) OnHandle(gc *RoomContext, req RequestWrapper) error {
	if jreq := TryUnwrapJoinRoomRequest(req); jreq != nil {
		return handleJoin(gc, jreq)
	}

	if lreq := TryUnwrapLeaveRequest(req); lreq != nil {
		handleLeave(gc, lreq)
		return nil
	}

	if sreq := TryUnwrapStartGameRequest(req); sreq != nil {
		if req.SenderID != gc.HostID {
			return ErrNotHost
		}

		if len(gc.Players) < gc.Opts.MinPlayers {
			return ErrInsufficientPlayers
		}

		// Fresh game: everyone back alive, roles re-dealt on entry.
		for _, p := range gc.Players {
			p.Alive = true
			p.Role = ROLE_UNSET
			p.Word = ""
			p.Spoken = false
		}

		gc.Round = 0
		gc.Word = ""

		fsh.onSwitch(PHASE_SPEAKING)

		return nil
	}

	return ErrWrongPhase
}

func (fsh *finishedStageHandler) OnExit(gc *RoomContext) {
}

func (fsh *finishedStageHandler) SetOnSwitch(onSwitch func(string)) {
	fsh.onSwitch = onSwitch
}
