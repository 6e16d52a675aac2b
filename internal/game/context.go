package game

import (
	"time"

	"go.uber.org/zap"
)

// RoomContext is the authoritative per-room state. It is only ever
// touched from the room's own event loop, so no locking happens here.
type RoomContext struct {
	Code   string
	HostID string
	Phase  string
	Round  int

	// Players keeps insertion order: it defines the turn rotation.
	// Eliminated players stay in the slice with Alive=false.
	Players []*Player
	TurnIdx int

	// Votes maps caster id to target id ("" is an abstention). Only
	// populated while Phase is PHASE_VOTING.
	Votes map[string]string

	// Word is the round secret. Empty outside an active round.
	Word string

	Opts  RoomOptions
	Hooks Hooks

	// TmoCh receives the deferred voting timeout.
	TmoCh chan RequestWrapper

	voteTimer *time.Timer
	voteEpoch int
}

func (gc *RoomContext) PlayerByID(id string) *Player {
	for _, p := range gc.Players {
		if p.ID == id {
			return p
		}
	}

	return nil
}

func (gc *RoomContext) Host() *Player {
	return gc.PlayerByID(gc.HostID)
}

func (gc *RoomContext) CountAlive() int {
	n := 0
	for _, p := range gc.Players {
		if p.Alive {
			n++
		}
	}

	return n
}

func (gc *RoomContext) CountAliveWithRole(role string) int {
	n := 0
	for _, p := range gc.Players {
		if p.Alive && p.Role == role {
			n++
		}
	}

	return n
}

func (gc *RoomContext) AlivePlayers() []*Player {
	alive := make([]*Player, 0, len(gc.Players))
	for _, p := range gc.Players {
		if p.Alive {
			alive = append(alive, p)
		}
	}

	return alive
}

func (gc *RoomContext) PublicPlayers() []PublicPlayer {
	players := make([]PublicPlayer, 0, len(gc.Players))
	for _, p := range gc.Players {
		players = append(players, PublicPlayer{
			ID:    p.ID,
			Name:  p.Name,
			Alive: p.Alive,
		})
	}

	return players
}

// Snapshot builds the state broadcast payload reflecting the room as of
// now.
func (gc *RoomContext) Snapshot() RoomStateNotification {
	snap := RoomStateNotification{
		Code:       gc.Code,
		HostID:     gc.HostID,
		Phase:      gc.Phase,
		Round:      gc.Round,
		MaxPlayers: gc.Opts.MaxPlayers,
		Players:    gc.PublicPlayers(),
	}

	if gc.Phase == PHASE_SPEAKING {
		if cur := gc.CurrentTurnPlayer(); cur != nil {
			snap.TurnPlayerID = cur.ID
			snap.TurnSecs = gc.Opts.TurnSecs
		}
	}

	return snap
}

func (gc *RoomContext) BroadcastState() {
	gc.BroadcastResp(WrapResponse(RESP_ROOM_STATE, gc.Snapshot()))
}

func (gc *RoomContext) BroadcastResp(resp ResponseWrapper) {
	for _, p := range gc.Players {
		select {
		case p.RespCh <- resp:
		default:
			zap.L().Warn(
				"dropping broadcast: player response channel full",
				zap.String("room_code", gc.Code),
				zap.String("player_id", p.ID),
			)
		}
	}
}

func (gc *RoomContext) UnicastResp(playerID string, resp ResponseWrapper) {
	player := gc.PlayerByID(playerID)
	if player == nil {
		zap.L().Warn(
			"cannot unicast: player not in room",
			zap.String("room_code", gc.Code),
			zap.String("player_id", playerID),
		)
		return
	}

	select {
	case player.RespCh <- resp:
	default:
		zap.L().Warn(
			"dropping unicast: player response channel full",
			zap.String("room_code", gc.Code),
			zap.String("player_id", playerID),
		)
	}
}

// SetVoteTimeout schedules the deferred voting resolution. The timer
// posts into TmoCh instead of touching state, so resolution still runs
// on the room loop.
func (gc *RoomContext) SetVoteTimeout(d time.Duration) {
	gc.ClearVoteTimeout()

	gc.voteEpoch++

	tmoCh := gc.TmoCh
	wrapper := RequestWrapper{
		ReqType:    REQ_TIMEOUT,
		NativeData: &TimeoutRequest{Phase: PHASE_VOTING, Epoch: gc.voteEpoch},
	}

	gc.voteTimer = time.AfterFunc(d, func() {
		select {
		case tmoCh <- wrapper:
		default:
			zap.L().Warn("dropping vote timeout: room channel full")
		}
	})
}

// ClearVoteTimeout cancels a pending voting timeout so a late fire can
// never resolve a phase that already moved on.
func (gc *RoomContext) ClearVoteTimeout() {
	if gc.voteTimer != nil {
		gc.voteTimer.Stop()
		gc.voteTimer = nil
	}
}
