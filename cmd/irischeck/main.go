// irischeck verifies the Iris bridge: it posts a rendered board to a room and
// prints chat events seen on the WebSocket for a short window.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	appcfg "github.com/park285/fenpix/internal/config"
	"github.com/park285/fenpix/internal/irisfast"
	"github.com/park285/fenpix/pkg/fenpix"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.IrisBaseURL == "" {
		log.Fatal("IRIS_BASE_URL is required")
	}

	if room := os.Getenv("IRISCHECK_ROOM"); room != "" {
		client := irisfast.NewClient(cfg.IrisBaseURL,
			irisfast.WithHeaderProvider(cfg.IrisHeaders),
			irisfast.WithTimeout(8*time.Second),
		)
		set, err := fenpix.DefaultAssets()
		if err != nil {
			log.Fatalf("assets: %v", err)
		}
		png, err := fenpix.RenderToBuffer(startFEN, 2, set)
		if err != nil {
			log.Fatalf("render start position: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := irisfast.SendPNG(ctx, client, room, png); err != nil {
			log.Printf("/reply image error: %v", err)
		} else {
			log.Printf("/reply image ok: room=%s bytes=%d", room, len(png))
		}
		cancel()
	}

	if cfg.IrisWSURL == "" {
		log.Println("IRIS_WS_URL not set; skipping WS check")
		return
	}

	ws := irisfast.NewWebSocket(cfg.IrisWSURL, 0, nil)
	ws.SetHeaderProvider(cfg.IrisHeaders)
	ws.OnStateChange(func(state irisfast.WebSocketState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(msg *irisfast.Message) {
		from := msg.SenderID()
		if from == "" {
			from = "?"
		}
		fmt.Printf("WS msg room=%s from=%s text=%q\n", msg.Room, from, msg.Msg)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	time.Sleep(10 * time.Second)
	_ = ws.Close(context.Background())
}
