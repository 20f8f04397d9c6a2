// Package server exposes the board service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/park285/fenpix/internal/archive"
	"github.com/park285/fenpix/internal/fen"
	"github.com/park285/fenpix/internal/render"
	svcboard "github.com/park285/fenpix/internal/service/board"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// History lists archived renders, newest first.
type History interface {
	Recent(ctx context.Context, limit int) ([]archive.Record, error)
}

type Server struct {
	svc            *svcboard.Service
	history        History
	defaultUpscale int
	timeout        time.Duration
	logger         *zap.Logger
	http           *fasthttp.Server
}

type Option func(*Server)

func WithDefaultUpscale(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.defaultUpscale = n
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// WithHistory enables GET /renders.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

func New(svc *svcboard.Service, opts ...Option) *Server {
	s := &Server{
		svc:            svc,
		defaultUpscale: 1,
		timeout:        10 * time.Second,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.http = &fasthttp.Server{
		Handler:            s.Handler(),
		Name:               "fenpix",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		MaxRequestBodySize: 64 * 1024,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http_listen", zap.String("addr", addr))
	return s.http.ListenAndServe(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.ShutdownWithContext(ctx)
}

func (s *Server) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/healthz":
			ctx.SetContentType("text/plain; charset=utf-8")
			ctx.SetBodyString("ok")
		case "/render":
			switch {
			case ctx.IsGet():
				s.renderQuery(ctx)
			case ctx.IsPost():
				s.renderJSON(ctx)
			default:
				ctx.Response.Header.Set("Allow", "GET, POST")
				writeError(ctx, fasthttp.StatusMethodNotAllowed, "method_not_allowed", "use GET or POST")
			}
		case "/renders":
			if !ctx.IsGet() {
				ctx.Response.Header.Set("Allow", "GET")
				writeError(ctx, fasthttp.StatusMethodNotAllowed, "method_not_allowed", "use GET")
				return
			}
			s.recent(ctx)
		default:
			writeError(ctx, fasthttp.StatusNotFound, "not_found", "no such endpoint")
		}
	}
}

// renderBody is the POST /render payload. A missing upscale takes the server
// default; an explicit 0 is rejected like any other value below 1.
type renderBody struct {
	FEN     string `json:"fen"`
	Upscale *int   `json:"upscale,omitempty"`
	Strict  *bool  `json:"strict,omitempty"`
}

func (s *Server) renderQuery(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	req := svcboard.Request{FEN: string(args.Peek("fen")), Upscale: s.defaultUpscale}
	if v := strings.TrimSpace(string(args.Peek("upscale"))); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "bad_upscale", "upscale must be an integer")
			return
		}
		req.Upscale = n
	}
	if v := strings.TrimSpace(string(args.Peek("strict"))); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "bad_strict", "strict must be a boolean")
			return
		}
		req.Strict = &b
	}
	s.render(ctx, req)
}

func (s *Server) renderJSON(ctx *fasthttp.RequestCtx) {
	var body renderBody
	if err := json.Unmarshal(ctx.PostBody(), &body); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "bad_json", err.Error())
		return
	}
	req := svcboard.Request{FEN: body.FEN, Upscale: s.defaultUpscale, Strict: body.Strict}
	if body.Upscale != nil {
		req.Upscale = *body.Upscale
	}
	s.render(ctx, req)
}

func (s *Server) render(ctx *fasthttp.RequestCtx, req svcboard.Request) {
	// 요청별 타임아웃은 별도 context로 관리
	rctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.svc.Render(rctx, req)
	if err != nil {
		status, code := classify(err)
		if status >= 500 {
			s.logger.Error("render_fail", zap.String("fen", req.FEN), zap.Int("upscale", req.Upscale), zap.Error(err))
		}
		writeError(ctx, status, code, err.Error())
		return
	}
	ctx.Response.Header.Set("X-Request-Id", res.RequestID)
	if res.CacheHit {
		ctx.Response.Header.Set("X-Cache", "HIT")
	} else {
		ctx.Response.Header.Set("X-Cache", "MISS")
	}
	ctx.SetContentType("image/png")
	ctx.SetBody(res.PNG)
}

type renderEntry struct {
	RequestID  string    `json:"request_id"`
	FEN        string    `json:"fen"`
	Upscale    int       `json:"upscale"`
	Bytes      int       `json:"bytes"`
	CacheHit   bool      `json:"cache_hit"`
	DurationMS int64     `json:"duration_ms"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

type rendersBody struct {
	Renders []renderEntry `json:"renders"`
}

// recent serves GET /renders?limit=N from the archive. The repository clamps limit.
func (s *Server) recent(ctx *fasthttp.RequestCtx) {
	if s.history == nil {
		writeError(ctx, fasthttp.StatusNotFound, "archive_disabled", "render archive is not configured")
		return
	}
	limit := 0
	if v := strings.TrimSpace(string(ctx.QueryArgs().Peek("limit"))); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(ctx, fasthttp.StatusBadRequest, "bad_limit", "limit must be an integer")
			return
		}
		limit = n
	}

	rctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	recs, err := s.history.Recent(rctx, limit)
	if err != nil {
		s.logger.Error("history_fail", zap.Int("limit", limit), zap.Error(err))
		writeError(ctx, fasthttp.StatusInternalServerError, "archive_failed", err.Error())
		return
	}

	out := rendersBody{Renders: make([]renderEntry, 0, len(recs))}
	for _, rec := range recs {
		out.Renders = append(out.Renders, renderEntry{
			RequestID:  rec.RequestID,
			FEN:        rec.FEN,
			Upscale:    rec.Upscale,
			Bytes:      rec.Bytes,
			CacheHit:   rec.CacheHit,
			DurationMS: rec.Duration.Milliseconds(),
			Source:     rec.Source,
			CreatedAt:  rec.CreatedAt,
		})
	}
	raw, err := json.Marshal(out)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(raw)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, fen.ErrMalformed):
		return fasthttp.StatusBadRequest, "bad_fen"
	case errors.Is(err, render.ErrUpscale), errors.Is(err, render.ErrTooLarge), errors.Is(err, svcboard.ErrUpscaleLimit):
		return fasthttp.StatusBadRequest, "bad_upscale"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fasthttp.StatusServiceUnavailable, "timeout"
	default:
		return fasthttp.StatusInternalServerError, "render_failed"
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(ctx *fasthttp.RequestCtx, status int, code, msg string) {
	raw, _ := json.Marshal(errorBody{Error: msg, Code: code})
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(raw)
}
