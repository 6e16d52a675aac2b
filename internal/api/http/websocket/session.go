package websocket

import (
	"encoding/json"
	"time"

	"impostor-arcane-be/internal/game"
	"impostor-arcane-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// Intents a connected client may send after joining. Everything else
// (join, leave, timeouts) is server-originated.
var allowedIntents = map[string]bool{
	game.REQ_START_GAME:   true,
	game.REQ_END_TURN:     true,
	game.REQ_FORCE_TURN:   true,
	game.REQ_START_VOTING: true,
	game.REQ_CAST_VOTE:    true,
}

// session binds one websocket connection to a player identity and, once
// joined, to a room. It lives exactly as long as the connection.
type session struct {
	playerID string
	roomCode string

	reqCh  chan game.RequestWrapper
	respCh chan game.ResponseWrapper
}

// JoinGame is the gateway entry point. The first message on a fresh
// connection must be CreateRoom or JoinRoom; every later message is a
// game intent dispatched to the room loop.
func JoinGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("websocket upgrade failed", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		clientIP := ctx.RemoteAddr()

		sess, joined := openSession(appState, conn, clientIP)
		if !joined {
			return
		}

		zap.L().Info(
			"player session established",
			zap.String("client_ip", clientIP),
			zap.String("player_id", sess.playerID),
			zap.String("room_code", sess.roomCode),
		)

		writeDoneCh := make(chan struct{})
		defer close(writeDoneCh)

		go writePump(conn, sess, writeDoneCh, clientIP)

		readPump(conn, sess, clientIP)

		// The read loop only exits on disconnect: hand the player's
		// removal to the room loop.
		sess.leave(clientIP)
	}
}

// openSession reads the opening message, resolves or creates the room,
// and performs the join handshake. Returns joined=false when the
// connection should simply be dropped.
func openSession(appState *state.AppState, conn *websocket.Conn, clientIP string) (*session, bool) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		zap.L().Error(
			"failed to read opening message",
			zap.String("client_ip", clientIP),
			zap.Error(err),
		)
		return nil, false
	}

	var wrapper game.RequestWrapper

	if err := json.Unmarshal(msg, &wrapper); err != nil {
		zap.L().Error(
			"failed to parse opening message",
			zap.String("client_ip", clientIP),
			zap.Error(err),
		)
		return nil, false
	}

	var (
		rm   *game.RoomMachine
		name string
	)

	switch wrapper.ReqType {
	case game.REQ_CREATE_ROOM:
		creq := game.TryUnwrapCreateRoomRequest(wrapper)
		if creq == nil {
			writeErr(conn, "invalid create request")
			return nil, false
		}

		rm, err = appState.Registry.CreateRoom(*creq)
		if err != nil {
			writeErr(conn, err.Error())
			return nil, false
		}

		name = creq.Name

	case game.REQ_JOIN_ROOM:
		var jreq game.JoinRoomRequest
		if len(wrapper.Data) > 0 {
			if err := json.Unmarshal(wrapper.Data, &jreq); err != nil {
				writeErr(conn, "invalid join request")
				return nil, false
			}
		}

		rm, err = appState.Registry.Lookup(jreq.RoomCode)
		if err != nil {
			writeErr(conn, err.Error())
			return nil, false
		}

		name = jreq.Name

	default:
		zap.L().Warn(
			"opening message is neither CreateRoom nor JoinRoom",
			zap.String("client_ip", clientIP),
			zap.String("request_type", wrapper.ReqType),
		)
		writeErr(conn, "first message must be CreateRoom or JoinRoom")
		return nil, false
	}

	sess := &session{
		playerID: game.GenID(),
		roomCode: rm.Code(),
		reqCh:    rm.ReqCh(),
		// Buffered so broadcasts survive a slow writer for a while.
		respCh: make(chan game.ResponseWrapper, 64),
	}

	joinWrapper := game.RequestWrapper{
		ReqType:  game.REQ_JOIN_ROOM,
		SenderID: sess.playerID,
		NativeData: &game.JoinRoomRequest{
			RoomCode: sess.roomCode,
			Name:     name,
			PlayerID: sess.playerID,
			RespCh:   sess.respCh,
		},
	}

	select {
	case sess.reqCh <- joinWrapper:
	case <-time.After(5 * time.Second):
		zap.L().Warn(
			"room did not accept the join in time",
			zap.String("room_code", sess.roomCode),
		)
		writeErr(conn, "failed to join room")
		return nil, false
	}

	// The join ack (or its rejection) is always the first response.
	select {
	case resp := <-sess.respCh:
		if err := conn.WriteJSON(resp); err != nil {
			return nil, false
		}

		if resp.RespType == game.RESP_ERROR {
			return nil, false
		}

	case <-time.After(3 * time.Second):
		zap.L().Error(
			"timed out waiting for join ack",
			zap.String("room_code", sess.roomCode),
		)
		writeErr(conn, "failed to join room")
		return nil, false
	}

	return sess, true
}

func writePump(conn *websocket.Conn, sess *session, doneCh <-chan struct{}, clientIP string) {
	ticker := time.NewTicker(HEARTBEAT_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-doneCh:
			return

		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				zap.L().Debug(
					"heartbeat failed",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)
				return
			}

			conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))

		case resp, ok := <-sess.respCh:
			// The room loop closes the channel once the player is out.
			if !ok {
				return
			}

			if err := conn.WriteJSON(resp); err != nil {
				zap.L().Debug(
					"failed to write response",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)
				return
			}
		}
	}
}

func readPump(conn *websocket.Conn, sess *session, clientIP string) {
	limiter := newIntentLimiter()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				zap.L().Debug(
					"read failed",
					zap.String("client_ip", clientIP),
					zap.Error(err),
				)
			}

			return
		}

		if !limiter.Allow() {
			sess.pushResp(game.WrapErrResponse("slow down"))
			continue
		}

		var wrapper game.RequestWrapper

		if err := json.Unmarshal(msg, &wrapper); err != nil {
			sess.pushResp(game.WrapErrResponse("invalid request format"))
			continue
		}

		if !allowedIntents[wrapper.ReqType] {
			sess.pushResp(game.WrapErrResponse("unsupported request type"))
			continue
		}

		// Identity comes from the session, never from the payload.
		wrapper.SenderID = sess.playerID

		select {
		case sess.reqCh <- wrapper:
		default:
			zap.L().Warn(
				"room request channel full",
				zap.String("room_code", sess.roomCode),
			)
			sess.pushResp(game.WrapErrResponse("room is busy, try again"))
		}
	}
}

// leave tells the room loop the connection is gone and waits briefly
// for the room to release the player (it closes respCh when done).
func (sess *session) leave(clientIP string) {
	leaveWrapper := game.RequestWrapper{
		ReqType:  game.REQ_LEAVE_ROOM,
		SenderID: sess.playerID,
		NativeData: &game.LeaveRequest{
			PlayerID: sess.playerID,
			RespCh:   sess.respCh,
		},
	}

	select {
	case sess.reqCh <- leaveWrapper:
	default:
		zap.L().Warn(
			"failed to deliver leave request: channel full",
			zap.String("player_id", sess.playerID),
		)
	}

	deadline := time.After(3 * time.Second)

	for {
		select {
		case _, ok := <-sess.respCh:
			if !ok {
				zap.L().Info(
					"player session closed",
					zap.String("client_ip", clientIP),
					zap.String("player_id", sess.playerID),
					zap.String("room_code", sess.roomCode),
				)
				return
			}

		case <-deadline:
			zap.L().Warn(
				"timed out waiting for leave confirmation",
				zap.String("player_id", sess.playerID),
			)
			return
		}
	}
}

func (sess *session) pushResp(resp game.ResponseWrapper) {
	select {
	case sess.respCh <- resp:
	default:
	}
}

func writeErr(conn *websocket.Conn, msg string) {
	_ = conn.WriteJSON(game.WrapErrResponse(msg))
}
