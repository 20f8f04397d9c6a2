package irisfast

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Egress sends replies to a chat room.
type Egress interface {
	SendText(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room, imageBase64 string) error
}

const (
	ModeHTTP = "http"
	ModeWS   = "ws"
	ModeAuto = "auto"
)

// NewEgress picks a transport. Auto prefers a connected WebSocket and falls back to HTTP once.
func NewEgress(mode string, c *Client, ws *WebSocket, logger *zap.Logger) (Egress, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case ModeHTTP, "":
		if c == nil {
			return nil, errors.New("http egress needs a client")
		}
		return c, nil
	case ModeWS:
		if ws == nil {
			return nil, errors.New("ws egress needs a websocket")
		}
		return &wsEgress{ws: ws}, nil
	case ModeAuto:
		if c == nil || ws == nil {
			return nil, errors.New("auto egress needs a client and a websocket")
		}
		return &autoEgress{ws: &wsEgress{ws: ws}, http: c, logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown egress mode %q", mode)
	}
}

// SendPNG base64-encodes png and sends it as an image reply.
func SendPNG(ctx context.Context, e Egress, room string, png []byte) error {
	return e.SendImage(ctx, room, base64.StdEncoding.EncodeToString(png))
}

type wsEgress struct{ ws *WebSocket }

func (w *wsEgress) SendText(ctx context.Context, room, message string) error {
	return w.ws.WriteJSON(ctx, ReplyRequest{Type: "text", Room: room, Data: message})
}

func (w *wsEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
	return w.ws.WriteJSON(ctx, ReplyRequest{Type: "image", Room: room, Data: imageBase64})
}

type autoEgress struct {
	ws     *wsEgress
	http   *Client
	logger *zap.Logger
}

func (a *autoEgress) SendText(ctx context.Context, room, message string) error {
	// WS 실패 시 HTTP로 한 번만 재시도
	if a.ws.ws.Connected() {
		err := a.ws.SendText(ctx, room, message)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "text"), zap.String("room", room), zap.Error(err))
	}
	return a.http.SendText(ctx, room, message)
}

func (a *autoEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
	if a.ws.ws.Connected() {
		err := a.ws.SendImage(ctx, room, imageBase64)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "image"), zap.String("room", room), zap.Error(err))
	}
	return a.http.SendImage(ctx, room, imageBase64)
}
