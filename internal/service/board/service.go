// Package board serves PNG renders with caching and an audit trail around the renderer.
package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/park285/fenpix/internal/archive"
	"github.com/park285/fenpix/internal/assets"
	"github.com/park285/fenpix/internal/cache"
	"github.com/park285/fenpix/internal/render"
	"go.uber.org/zap"
)

var ErrUpscaleLimit = errors.New("upscale above limit")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, png []byte) error
}

type Archive interface {
	Save(ctx context.Context, rec archive.Record) error
}

type Config struct {
	MaxUpscale int
	// Strict is used when a request does not choose.
	Strict bool
	Source string
}

type Service struct {
	lenient *render.Renderer
	strict  *render.Renderer
	cache   Cache
	archive Archive
	cfg     Config
	logger  *zap.Logger
}

type Option func(*Service)

func WithCache(c Cache) Option { return func(s *Service) { s.cache = c } }

func WithArchive(a Archive) Option { return func(s *Service) { s.archive = a } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewService(set *assets.Set, cfg Config, opts ...Option) (*Service, error) {
	lenient, err := render.NewRenderer(set)
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}
	strict, err := render.NewRenderer(set, render.WithStrict(true))
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}
	if cfg.MaxUpscale < 1 {
		cfg.MaxUpscale = 16
	}
	if cfg.Source == "" {
		cfg.Source = "http"
	}
	s := &Service{lenient: lenient, strict: strict, cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type Request struct {
	FEN     string
	Upscale int
	// Strict overrides Config.Strict when set.
	Strict *bool
	// Source overrides Config.Source in the archive record.
	Source string
}

type Result struct {
	RequestID string
	PNG       []byte
	CacheHit  bool
	Duration  time.Duration
}

func (s *Service) MaxUpscale() int { return s.cfg.MaxUpscale }

// Render parses, renders and encodes req. Cache and archive failures are logged and do
// not fail the request.
func (s *Service) Render(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	reqID := uuid.NewString()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	strict := s.cfg.Strict
	if req.Strict != nil {
		strict = *req.Strict
	}
	r := s.lenient
	if strict {
		r = s.strict
	}

	pos, err := r.Parse(req.FEN)
	if err != nil {
		s.logger.Info("render_reject", zap.String("request_id", reqID), zap.String("fen", req.FEN), zap.Error(err))
		return nil, err
	}
	if req.Upscale < 1 {
		return nil, fmt.Errorf("%w: got %d", render.ErrUpscale, req.Upscale)
	}
	if req.Upscale > s.cfg.MaxUpscale {
		return nil, fmt.Errorf("%w: %d > %d", ErrUpscaleLimit, req.Upscale, s.cfg.MaxUpscale)
	}

	res := &Result{RequestID: reqID}
	key := cache.Key(r.Assets().ID, pos, req.Upscale)
	// 캐시 장애는 요청 실패로 취급하지 않음
	if s.cache != nil {
		png, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache_get_fail", zap.String("request_id", reqID), zap.Error(err))
		} else if ok {
			res.PNG = png
			res.CacheHit = true
		}
	}

	if !res.CacheHit {
		img, err := r.RenderPosition(pos, req.Upscale)
		if err != nil {
			return nil, err
		}
		png, err := render.EncodePNG(img)
		if err != nil {
			return nil, err
		}
		res.PNG = png
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, png); err != nil {
				s.logger.Warn("cache_set_fail", zap.String("request_id", reqID), zap.Error(err))
			}
		}
	}
	res.Duration = time.Since(start)

	if s.archive != nil {
		source := s.cfg.Source
		if req.Source != "" {
			source = req.Source
		}
		rec := archive.Record{
			RequestID: reqID,
			FEN:       req.FEN,
			Upscale:   req.Upscale,
			Bytes:     len(res.PNG),
			CacheHit:  res.CacheHit,
			Duration:  res.Duration,
			Source:    source,
			CreatedAt: start,
		}
		if err := s.archive.Save(ctx, rec); err != nil {
			s.logger.Warn("archive_save_fail", zap.String("request_id", reqID), zap.Error(err))
		}
	}

	s.logger.Info("render_ok",
		zap.String("request_id", reqID),
		zap.String("fen", req.FEN),
		zap.Int("upscale", req.Upscale),
		zap.Bool("cache_hit", res.CacheHit),
		zap.Int("bytes", len(res.PNG)),
		zap.Duration("took", res.Duration),
	)
	return res, nil
}
