// Package app wires configuration into a ready render service.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"
	"time"

	"github.com/park285/fenpix/internal/archive"
	"github.com/park285/fenpix/internal/assets"
	"github.com/park285/fenpix/internal/cache"
	"github.com/park285/fenpix/internal/config"
	"github.com/park285/fenpix/internal/render"
	svcboard "github.com/park285/fenpix/internal/service/board"
	"go.uber.org/zap"
)

type Deps struct {
	Assets  *assets.Set
	Service *svcboard.Service
	Cache   *cache.PNGCache
	Archive *archive.Repository
}

// Close releases the Redis and Postgres connections, if any.
func (d *Deps) Close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Cache != nil {
		errs = append(errs, d.Cache.Close())
	}
	if d.Archive != nil {
		errs = append(errs, d.Archive.Close())
	}
	return errors.Join(errs...)
}

// New builds the service. Redis and Postgres are optional and enabled by their URLs.
func New(ctx context.Context, cfg *config.AppConfig, source string, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	set, err := LoadAssets(cfg)
	if err != nil {
		return nil, err
	}
	deps := &Deps{Assets: set}
	opts := []svcboard.Option{svcboard.WithLogger(logger)}

	if strings.TrimSpace(cfg.RedisURL) != "" {
		c, err := cache.Dial(ctx, cfg.RedisURL, time.Duration(cfg.CacheTTLSec)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		deps.Cache = c
		opts = append(opts, svcboard.WithCache(c))
	}

	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		repo, err := archive.Open(cfg.DatabaseURL)
		if err != nil {
			_ = deps.Close()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = repo.Close()
			_ = deps.Close()
			return nil, fmt.Errorf("archive schema: %w", err)
		}
		deps.Archive = repo
		opts = append(opts, svcboard.WithArchive(repo))
	}

	svc, err := svcboard.NewService(set, svcboard.Config{
		MaxUpscale: cfg.MaxUpscale,
		Strict:     cfg.Strict,
		Source:     source,
	}, opts...)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}
	deps.Service = svc

	logger.Info("app_ready",
		zap.String("assets", set.ID),
		zap.Bool("cache", deps.Cache != nil),
		zap.Bool("archive", deps.Archive != nil),
		zap.Bool("strict", cfg.Strict),
	)
	return deps, nil
}

// LoadAssets picks the built-in set or an asset directory, then optionally
// swaps in rasterised SVG pieces.
func LoadAssets(cfg *config.AppConfig) (*assets.Set, error) {
	var (
		set *assets.Set
		err error
	)
	if dir := strings.TrimSpace(cfg.AssetsDir); dir != "" {
		set, err = assets.LoadDir(os.DirFS(dir))
	} else {
		set, err = assets.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	if dir := strings.TrimSpace(cfg.SVGPiecesDir); dir != "" {
		// 기물이 칸보다 크면 옆 칸을 침범함
		geom, err := render.NewGeometry(set.Board.Bounds().Dx(), set.Border)
		if err != nil {
			return nil, fmt.Errorf("load svg pieces: %w", err)
		}
		if !geom.Fits(image.Pt(cfg.SVGPieceSize, cfg.SVGPieceSize)) {
			return nil, fmt.Errorf("load svg pieces: size %d exceeds square %d of %s", cfg.SVGPieceSize, geom.Square, set.ID)
		}
		pieces, err := assets.LoadSVGPieces(os.DirFS(dir), cfg.SVGPieceSize)
		if err != nil {
			return nil, fmt.Errorf("load svg pieces: %w", err)
		}
		set = set.WithPieces(fmt.Sprintf("%s+svg%d:%s", set.ID, cfg.SVGPieceSize, dir), pieces)
	}
	return set, nil
}
