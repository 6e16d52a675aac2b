package http

import (
	"fmt"

	"impostor-arcane-be/internal/api/http/websocket"
	"impostor-arcane-be/internal/state"

	"github.com/kataras/iris/v12"
)

func RunServer(appState *state.AppState) {
	app := iris.Default()

	app.HandleDir(
		"/",
		iris.Dir("./client"),
		iris.DirOptions{
			IndexName: "index.html",
			SPA:       true,
			Compress:  true,
		},
	)

	api := app.Party("/api/v1")

	api.Post("/rooms", CreateRoom(appState))
	api.Get("/rooms/{code}", GetRoom(appState))
	api.Get("/rooms/{code}/qr", RoomQR(appState))
	api.Get("/healthz", Health(appState))

	api.Get("/ws/join", websocket.JoinGame(appState))

	addr := fmt.Sprintf(
		"%s:%d",
		appState.Cfg.Host,
		appState.Cfg.Port,
	)

	app.Listen(addr)
}
