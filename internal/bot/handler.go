// Package bot answers chat commands such as "!fen x2 <FEN>" with a rendered board.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/fenpix/internal/fen"
	"github.com/park285/fenpix/internal/irisfast"
	"github.com/park285/fenpix/internal/msgcat"
	"github.com/park285/fenpix/internal/render"
	svcboard "github.com/park285/fenpix/internal/service/board"
	"go.uber.org/zap"
)

type Renderer interface {
	Render(ctx context.Context, req svcboard.Request) (*svcboard.Result, error)
	MaxUpscale() int
}

var errUpscaleToken = errors.New("bad upscale token")

type Config struct {
	Prefix         string
	AllowedRooms   []string
	DefaultUpscale int
	Timeout        time.Duration
	// Messages supplies reply texts; nil uses the embedded catalog.
	Messages *msgcat.Catalog
}

type Handler struct {
	svc    Renderer
	egress irisfast.Egress
	cfg    Config
	rooms  map[string]struct{}
	logger *zap.Logger
}

func New(svc Renderer, egress irisfast.Egress, cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultUpscale < 1 {
		cfg.DefaultUpscale = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Messages == nil {
		if cat, err := msgcat.New(nil); err == nil {
			cfg.Messages = cat
		}
	}
	h := &Handler{svc: svc, egress: egress, cfg: cfg, logger: logger}
	if len(cfg.AllowedRooms) > 0 {
		h.rooms = make(map[string]struct{}, len(cfg.AllowedRooms))
		for _, r := range cfg.AllowedRooms {
			h.rooms[r] = struct{}{}
		}
	}
	return h
}

// Accepts reports whether msg is a command for this bot from a permitted room.
func (h *Handler) Accepts(msg *irisfast.Message) bool {
	if msg == nil || strings.TrimSpace(msg.Msg) == "" {
		return false
	}
	if h.rooms != nil {
		if _, ok := h.rooms[msg.Room]; !ok {
			return false
		}
	}
	return strings.HasPrefix(strings.TrimSpace(msg.Msg), h.cfg.Prefix)
}

// OnMessage는 irisfast.MessageCallback. 명령은 읽기 루프 밖에서 실행.
func (h *Handler) OnMessage(msg *irisfast.Message) {
	if !h.Accepts(msg) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.cfg.Timeout)
		defer cancel()
		if err := h.Handle(ctx, msg); err != nil {
			h.logger.Warn("bot_reply_fail", zap.String("room", msg.Room), zap.Error(err))
		}
	}()
}

// Handle runs one command. The returned error covers delivery only; render
// failures are reported to the room as text.
func (h *Handler) Handle(ctx context.Context, msg *irisfast.Message) error {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Msg), h.cfg.Prefix))
	if raw == "" || strings.EqualFold(raw, "help") {
		return h.egress.SendText(ctx, msg.Room, h.helpText())
	}

	req, err := h.parseCommand(raw)
	if err != nil {
		return h.egress.SendText(ctx, msg.Room, h.userMessage(err))
	}
	req.Source = "bot"

	res, err := h.svc.Render(ctx, req)
	if err != nil {
		h.logger.Info("bot_render_reject",
			zap.String("room", msg.Room),
			zap.String("sender", msg.SenderID()),
			zap.Error(err),
		)
		return h.egress.SendText(ctx, msg.Room, h.userMessage(err))
	}
	return irisfast.SendPNG(ctx, h.egress, msg.Room, res.PNG)
}

// parseCommand reads "[xN] [strict] <FEN>".
func (h *Handler) parseCommand(raw string) (svcboard.Request, error) {
	req := svcboard.Request{Upscale: h.cfg.DefaultUpscale}
	fields := strings.Fields(raw)
	for len(fields) > 0 {
		tok := strings.ToLower(fields[0])
		if tok == "strict" {
			yes := true
			req.Strict = &yes
			fields = fields[1:]
			continue
		}
		if len(tok) > 1 && tok[0] == 'x' {
			n, err := strconv.Atoi(tok[1:])
			if err != nil {
				return req, fmt.Errorf("%w: %s", errUpscaleToken, fields[0])
			}
			req.Upscale = n
			fields = fields[1:]
			continue
		}
		break
	}
	req.FEN = strings.Join(fields, " ")
	return req, nil
}

func (h *Handler) userMessage(err error) string {
	msgs := h.cfg.Messages
	var ferr *fen.Error
	switch {
	case errors.Is(err, errUpscaleToken):
		return msgs.Text("bot.bad_upscale_token", nil, "Upscale must look like x2.")
	case errors.As(err, &ferr):
		return msgs.Text("bot.invalid_fen", map[string]any{"Reason": ferr.Reason}, "Invalid FEN: "+ferr.Reason)
	case errors.Is(err, render.ErrUpscale), errors.Is(err, render.ErrTooLarge), errors.Is(err, svcboard.ErrUpscaleLimit):
		limit := h.svc.MaxUpscale()
		return msgs.Text("bot.bad_upscale", map[string]any{"Max": limit}, fmt.Sprintf("Upscale must be between 1 and %d.", limit))
	default:
		return msgs.Text("bot.render_failed", nil, "Could not render that position.")
	}
}

func (h *Handler) helpText() string {
	p := h.cfg.Prefix
	return h.cfg.Messages.Text("bot.help", map[string]any{"Prefix": p}, "Usage: "+p+" [x<upscale>] [strict] <FEN>")
}
