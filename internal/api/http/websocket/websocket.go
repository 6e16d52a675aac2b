package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// NOTE: allow all origins for now
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const (
	HEARTBEAT_INTERVAL = 30 * time.Second
	HEARTBEAT_TIMEOUT  = 45 * time.Second
)

var heartbeatHandler = func(conn *websocket.Conn) func(string) error {
	return func(string) error {
		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		return nil
	}
}

// newIntentLimiter bounds how fast one connection may push intents:
// sustained 5/s with a burst of 10 covers any honest client.
func newIntentLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(5), 10)
}
