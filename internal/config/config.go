package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`

	DefaultUpscale int  `yaml:"default_upscale"`
	MaxUpscale     int  `yaml:"max_upscale"`
	Strict         bool `yaml:"strict"`

	AssetsDir    string `yaml:"assets_dir"`
	SVGPiecesDir string `yaml:"svg_pieces_dir"`
	SVGPieceSize int    `yaml:"svg_piece_size"`

	RedisURL    string `yaml:"redis_url"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"`
	DatabaseURL string `yaml:"database_url"`

	IrisBaseURL string `yaml:"iris_base_url"`
	IrisWSURL   string `yaml:"iris_ws_url"`
	EgressMode  string `yaml:"egress_mode"`

	BotPrefix    string   `yaml:"bot_prefix"`
	MessagesDir  string   `yaml:"messages_dir"`
	AllowedRooms []string `yaml:"allowed_rooms"`
	XUserID      string   `yaml:"x_user_id"`
	XUserEmail   string   `yaml:"x_user_email"`
	XSessionID   string   `yaml:"x_session_id"`
}

func defaults() *AppConfig {
	return &AppConfig{
		ListenAddr:     ":8080",
		DefaultUpscale: 1,
		MaxUpscale:     16,
		SVGPieceSize:   16,
		CacheTTLSec:    3600,
		EgressMode:     "http",
		BotPrefix:      "!fen",
	}
}

// Load reads FENPIX_CONFIG (YAML, optional) and then environment variables, which win.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("FENPIX_CONFIG")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	envString(&cfg.ListenAddr, "FENPIX_LISTEN")
	envInt(&cfg.DefaultUpscale, "FENPIX_UPSCALE")
	envInt(&cfg.MaxUpscale, "FENPIX_MAX_UPSCALE")
	envBool(&cfg.Strict, "FENPIX_STRICT")

	envString(&cfg.AssetsDir, "FENPIX_ASSETS_DIR")
	envString(&cfg.SVGPiecesDir, "FENPIX_SVG_PIECES_DIR")
	envInt(&cfg.SVGPieceSize, "FENPIX_SVG_PIECE_SIZE")

	envString(&cfg.RedisURL, "REDIS_URL")
	envInt(&cfg.CacheTTLSec, "FENPIX_CACHE_TTL")
	envString(&cfg.DatabaseURL, "DATABASE_URL")

	envString(&cfg.IrisBaseURL, "IRIS_BASE_URL")
	envString(&cfg.IrisWSURL, "IRIS_WS_URL")
	envString(&cfg.EgressMode, "IRIS_EGRESS_MODE")

	envString(&cfg.BotPrefix, "BOT_PREFIX")
	envString(&cfg.MessagesDir, "FENPIX_MESSAGES_DIR")
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ROOMS")); v != "" {
		cfg.AllowedRooms = splitList(v)
	}
	envString(&cfg.XUserID, "X_USER_ID")
	envString(&cfg.XUserEmail, "X_USER_EMAIL")
	envString(&cfg.XSessionID, "X_SESSION_ID")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.MaxUpscale < 1 {
		return errors.New("FENPIX_MAX_UPSCALE must be at least 1")
	}
	if c.DefaultUpscale < 1 || c.DefaultUpscale > c.MaxUpscale {
		return fmt.Errorf("FENPIX_UPSCALE must be between 1 and %d", c.MaxUpscale)
	}
	if c.SVGPieceSize < 3 {
		return errors.New("FENPIX_SVG_PIECE_SIZE must be at least 3")
	}
	if c.CacheTTLSec < 0 {
		return errors.New("FENPIX_CACHE_TTL must not be negative")
	}
	if strings.TrimSpace(c.BotPrefix) == "" {
		return errors.New("BOT_PREFIX must not be empty")
	}
	switch c.EgressMode {
	case "http", "ws", "auto":
	default:
		return fmt.Errorf("IRIS_EGRESS_MODE %q: want http, ws or auto", c.EgressMode)
	}
	return nil
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// envInt: 파싱 안 되는 값은 무시하고 기존 설정 유지.
func envInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// IrisHeaders returns the identity headers sent with every Iris request.
func (c *AppConfig) IrisHeaders() map[string]string {
	h := map[string]string{}
	if c.XUserID != "" {
		h["X-User-Id"] = c.XUserID
	}
	if c.XUserEmail != "" {
		h["X-User-Email"] = c.XUserEmail
	}
	if c.XSessionID != "" {
		h["X-Session-Id"] = c.XSessionID
	}
	return h
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
