package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth (YouTube / Google)
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRedirectURL  string

	// Session
	SessionMaxAge int

	// Provider
	ProviderTimeout time.Duration
	TrendingRegion  string

	// Rate Limit
	RateLimitGeneral int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.YouTubeClientID = os.Getenv("YOUTUBE_CLIENT_ID")
	if cfg.YouTubeClientID == "" {
		missing = append(missing, "YOUTUBE_CLIENT_ID")
	}

	cfg.YouTubeClientSecret = os.Getenv("YOUTUBE_CLIENT_SECRET")
	if cfg.YouTubeClientSecret == "" {
		missing = append(missing, "YOUTUBE_CLIENT_SECRET")
	}

	cfg.YouTubeRedirectURL = os.Getenv("YOUTUBE_REDIRECT_URL")
	if cfg.YouTubeRedirectURL == "" {
		missing = append(missing, "YOUTUBE_REDIRECT_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", 15*time.Second)
	cfg.TrendingRegion = getEnvString("TRENDING_REGION", "US")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
