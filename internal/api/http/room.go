package http

import (
	"fmt"

	"impostor-arcane-be/internal/game"
	"impostor-arcane-be/internal/state"

	"github.com/kataras/iris/v12"
	qrcode "github.com/skip2/go-qrcode"
)

// CreateRoom pre-creates a room over plain HTTP and hands back its
// code. The creator becomes host by being the first to join over the
// gateway.
func CreateRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		var req game.CreateRoomRequest

		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "invalid request body",
			})
			return
		}

		rm, err := appState.Registry.CreateRoom(req)
		if err != nil {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(iris.Map{
			"code": rm.Code(),
		})
	}
}

// GetRoom is the join pre-flight: does the code resolve to a live room?
func GetRoom(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		code := ctx.Params().Get("code")

		rm, err := appState.Registry.Lookup(code)
		if err != nil {
			ctx.StatusCode(iris.StatusNotFound)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		ctx.JSON(iris.Map{
			"code":    rm.Code(),
			"members": rm.Members(),
		})
	}
}

// RoomQR renders a PNG QR code pointing at the join page for a room, so
// a host can hand their screen to the table.
func RoomQR(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		code := ctx.Params().Get("code")

		rm, err := appState.Registry.Lookup(code)
		if err != nil {
			ctx.StatusCode(iris.StatusNotFound)
			ctx.JSON(iris.Map{
				"error": err.Error(),
			})
			return
		}

		scheme := "http"
		if ctx.Request().TLS != nil {
			scheme = "https"
		}
		if proto := ctx.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		joinURL := fmt.Sprintf("%s://%s/join/%s", scheme, ctx.Host(), rm.Code())

		const qrSize = 320

		png, err := qrcode.Encode(joinURL, qrcode.Medium, qrSize)
		if err != nil {
			ctx.StatusCode(iris.StatusInternalServerError)
			ctx.JSON(iris.Map{
				"error": "qr generation failed",
			})
			return
		}

		ctx.ContentType("image/png")
		ctx.Write(png)
	}
}

func Health(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		ctx.JSON(iris.Map{
			"status": "ok",
			"rooms":  appState.Registry.RoomCount(),
		})
	}
}
