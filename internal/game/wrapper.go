package game

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Client intent types.
const (
	REQ_CREATE_ROOM  = "CreateRoom"
	REQ_JOIN_ROOM    = "JoinRoom"
	REQ_START_GAME   = "StartGame"
	REQ_END_TURN     = "EndTurn"
	REQ_FORCE_TURN   = "ForceTurn"
	REQ_START_VOTING = "StartVoting"
	REQ_CAST_VOTE    = "CastVote"
	// Server-originated only.
	REQ_LEAVE_ROOM = "LeaveRoom"
	REQ_TIMEOUT    = "Timeout"
)

type RequestWrapper struct {
	ReqType string          `json:"request_type"`
	Data    json.RawMessage `json:"data"`

	// SenderID is stamped by the gateway from the session identity.
	// Clients cannot spoof it.
	SenderID string `json:"-"`
	// NativeData bypasses JSON for server-originated requests that carry
	// channels (join, leave, timeout).
	NativeData any `json:"-"`
}

func unwrapJSON[T any](wrapper RequestWrapper, reqType string) *T {
	if wrapper.ReqType != reqType {
		return nil
	}

	var req T

	if len(wrapper.Data) == 0 {
		return &req
	}

	if err := json.Unmarshal(wrapper.Data, &req); err != nil {
		zap.L().Error(
			"failed to unwrap request",
			zap.String("request_type", reqType),
			zap.Error(err),
		)
		return nil
	}

	return &req
}

func TryUnwrapCreateRoomRequest(wrapper RequestWrapper) *CreateRoomRequest {
	return unwrapJSON[CreateRoomRequest](wrapper, REQ_CREATE_ROOM)
}

func TryUnwrapJoinRoomRequest(wrapper RequestWrapper) *JoinRoomRequest {
	if wrapper.ReqType != REQ_JOIN_ROOM {
		return nil
	}

	// Join always travels natively: the gateway attaches the response
	// channel before forwarding.
	if req, ok := wrapper.NativeData.(*JoinRoomRequest); ok {
		return req
	}

	return nil
}

func TryUnwrapLeaveRequest(wrapper RequestWrapper) *LeaveRequest {
	if wrapper.ReqType != REQ_LEAVE_ROOM {
		return nil
	}

	if req, ok := wrapper.NativeData.(*LeaveRequest); ok {
		return req
	}

	return nil
}

func TryUnwrapStartGameRequest(wrapper RequestWrapper) *StartGameRequest {
	return unwrapJSON[StartGameRequest](wrapper, REQ_START_GAME)
}

func TryUnwrapEndTurnRequest(wrapper RequestWrapper) *EndTurnRequest {
	return unwrapJSON[EndTurnRequest](wrapper, REQ_END_TURN)
}

func TryUnwrapForceTurnRequest(wrapper RequestWrapper) *ForceTurnRequest {
	return unwrapJSON[ForceTurnRequest](wrapper, REQ_FORCE_TURN)
}

func TryUnwrapStartVotingRequest(wrapper RequestWrapper) *StartVotingRequest {
	return unwrapJSON[StartVotingRequest](wrapper, REQ_START_VOTING)
}

func TryUnwrapCastVoteRequest(wrapper RequestWrapper) *CastVoteRequest {
	return unwrapJSON[CastVoteRequest](wrapper, REQ_CAST_VOTE)
}

func TryUnwrapTimeoutRequest(wrapper RequestWrapper) *TimeoutRequest {
	if wrapper.ReqType != REQ_TIMEOUT {
		return nil
	}

	// Timeouts only ever come from the room's own timer; a forged JSON
	// timeout never unwraps.
	if req, ok := wrapper.NativeData.(*TimeoutRequest); ok {
		return req
	}

	return nil
}

// Response types.
const (
	RESP_ERROR = "Error"

	RESP_JOINED          = "Joined"
	RESP_ROOM_STATE      = "RoomState"
	RESP_ROLE            = "YourRole"
	RESP_ROUND_STARTED   = "RoundStarted"
	RESP_PLAYER_SPOKEN   = "PlayerSpoken"
	RESP_VOTING_STARTED  = "VotingStarted"
	RESP_VOTE_REGISTERED = "VoteRegistered"
	RESP_VOTING_RESULT   = "VotingResult"
	RESP_GAME_OVER       = "GameOver"
	RESP_PLAYER_LEFT     = "PlayerLeft"
)

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	Data     any    `json:"data,omitempty"`
	ErrMsg   string `json:"error_message,omitempty"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Data:     data,
	}
}

func WrapErrResponse(errMsg string) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ErrMsg:   errMsg,
	}
}
