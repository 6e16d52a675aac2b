package game

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// RoomMachine owns one room. All intents for the room funnel through
// its event loop, so state transitions are strictly serial and never
// need a lock.
type RoomMachine struct {
	ctx     *RoomContext
	handler StageHandler

	// reqCh aggregates every client intent for this room.
	reqCh chan RequestWrapper
	// doneCh tells the loop to shut down (registry close or sweep).
	doneCh chan struct{}

	// onEmpty notifies the registry once the last member is gone.
	onEmpty func(code string)

	members   atomic.Int32
	createdAt time.Time
}

func NewRoomMachine(code string, opts RoomOptions, hooks Hooks, onEmpty func(string)) *RoomMachine {
	if hooks == nil {
		hooks = NopHooks{}
	}

	ctx := &RoomContext{
		Code:    code,
		Phase:   PHASE_LOBBY,
		Players: make([]*Player, 0, opts.MaxPlayers),
		Votes:   make(map[string]string),
		Opts:    opts,
		Hooks:   hooks,
		TmoCh:   make(chan RequestWrapper, 64),
	}

	rm := &RoomMachine{
		ctx:       ctx,
		handler:   NewLobbyStageHandler(),
		reqCh:     make(chan RequestWrapper, 64),
		doneCh:    make(chan struct{}),
		onEmpty:   onEmpty,
		createdAt: time.Now(),
	}

	rm.handler.SetOnSwitch(func(nextPhase string) {
		rm.ctx.Phase = nextPhase
	})

	return rm
}

func (rm *RoomMachine) ReqCh() chan RequestWrapper {
	return rm.reqCh
}

func (rm *RoomMachine) Code() string {
	return rm.ctx.Code
}

func (rm *RoomMachine) CreatedAt() time.Time {
	return rm.createdAt
}

// Members reports the current member count. Safe to read from outside
// the room loop (used by the registry sweeper).
func (rm *RoomMachine) Members() int {
	return int(rm.members.Load())
}

// Stop asks the event loop to exit. Idempotent senders must not close
// doneCh themselves.
func (rm *RoomMachine) Stop() {
	select {
	case <-rm.doneCh:
	default:
		close(rm.doneCh)
	}
}

// Run is the room event loop. It exits when the room empties or the
// registry shuts it down, releasing any pending vote timer either way.
func (rm *RoomMachine) Run() {
	rm.handler.OnEnter(rm.ctx)

	defer func() {
		rm.ctx.ClearVoteTimeout()

		zap.L().Info(
			"room loop exited",
			zap.String("room_code", rm.ctx.Code),
		)
	}()

	for {
		var req RequestWrapper

		select {
		case req = <-rm.reqCh:
		case req = <-rm.ctx.TmoCh:
		case <-rm.doneCh:
			return
		}

		rm.dispatch(req)
		rm.members.Store(int32(len(rm.ctx.Players)))

		// The room dies with its last member. A room that has seen no
		// member yet is left to the registry sweeper.
		if len(rm.ctx.Players) == 0 && rm.ctx.HostID != "" {
			if rm.onEmpty != nil {
				rm.onEmpty(rm.ctx.Code)
			}
			return
		}
	}
}

// dispatch applies one intent. Panics are contained here so a faulty
// intent cannot take the whole room (or registry) down.
func (rm *RoomMachine) dispatch(req RequestWrapper) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error(
				"panic while handling intent",
				zap.String("room_code", rm.ctx.Code),
				zap.String("request_type", req.ReqType),
				zap.Any("panic", r),
			)

			rm.replyErr(req, "internal error")
		}
	}()

	err := rm.handler.OnHandle(rm.ctx, req)
	if err != nil {
		zap.L().Debug(
			"intent rejected",
			zap.String("room_code", rm.ctx.Code),
			zap.String("phase", rm.handler.Stage()),
			zap.String("request_type", req.ReqType),
			zap.Error(err),
		)

		rm.replyErr(req, err.Error())

		return
	}

	// A handler signalled a transition by moving ctx.Phase.
	for rm.ctx.Phase != rm.handler.Stage() {
		rm.switchStage()
		rm.handler.OnEnter(rm.ctx)
	}
}

// replyErr reports a failure to the requester only. Failures are never
// broadcast.
func (rm *RoomMachine) replyErr(req RequestWrapper, msg string) {
	resp := WrapErrResponse(msg)

	var respCh chan ResponseWrapper

	switch native := req.NativeData.(type) {
	case *JoinRoomRequest:
		respCh = native.RespCh
	case *LeaveRequest:
		respCh = native.RespCh
	default:
		if p := rm.ctx.PlayerByID(req.SenderID); p != nil {
			respCh = p.RespCh
		}
	}

	if respCh == nil {
		return
	}

	select {
	case respCh <- resp:
	default:
		zap.L().Warn(
			"dropping error response: channel full",
			zap.String("room_code", rm.ctx.Code),
		)
	}
}

func (rm *RoomMachine) switchStage() {
	rm.handler.OnExit(rm.ctx)

	var newHandler StageHandler

	switch rm.ctx.Phase {
	case PHASE_LOBBY:
		newHandler = NewLobbyStageHandler()
	case PHASE_SPEAKING:
		newHandler = NewSpeakingStageHandler()
	case PHASE_VOTING:
		newHandler = NewVotingStageHandler()
	case PHASE_FINISHED:
		newHandler = NewFinishedStageHandler()
	default:
		zap.L().Error(
			"unknown phase",
			zap.String("room_code", rm.ctx.Code),
			zap.String("phase", rm.ctx.Phase),
		)
		rm.ctx.Phase = rm.handler.Stage()
		return
	}

	newHandler.SetOnSwitch(func(nextPhase string) {
		rm.ctx.Phase = nextPhase
	})

	rm.handler = newHandler
}
