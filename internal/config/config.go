// Package config loads server settings from the environment.
//
// A .env file in the working directory is read first, if present. Real
// environment variables win over values from the file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"golang.org/x/oauth2/github"
)

const (
	DefaultUserInfoURL = "https://api.github.com/user"
	DefaultUserRepoURL = "https://api.github.com/user/repos"
)

type Config struct {
	Port    int
	DBPath  string
	HostURL string // public base URL, used to build the OAuth redirect

	ClientID     string
	ClientSecret string
	TokenURL     string
	UserInfoURL  string
	UserRepoURL  string

	UpstreamTimeout   time.Duration
	UpstreamRPS       float64 // 0 = unlimited
	FanoutConcurrency int

	SessionSecret string
	SessionTTL    time.Duration
	// SessionSecretGenerated is set when SESSION_SECRET was empty and a
	// random one was made up. Sessions then die with the process.
	SessionSecretGenerated bool

	// TokenEncryptionKey, when set, seals stored access tokens. 32 bytes,
	// hex or base64 encoded.
	TokenEncryptionKey string

	LogLevel  slog.Level
	LogFormat string // "text" or "json"
}

// Load reads .env (if any) and the environment. Unset variables take their
// defaults; malformed ones return an error naming the variable.
func Load() (Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:              8080,
		DBPath:            "data/deployhub.db",
		TokenURL:          github.Endpoint.TokenURL,
		UserInfoURL:       DefaultUserInfoURL,
		UserRepoURL:       DefaultUserRepoURL,
		UpstreamTimeout:   10 * time.Second,
		FanoutConcurrency: 4,
		SessionTTL:        24 * time.Hour,
		LogLevel:          slog.LevelInfo,
		LogFormat:         "text",
	}

	var err error
	if v := getenv("PORT"); v != "" {
		if cfg.Port, err = strconv.Atoi(v); err != nil || cfg.Port <= 0 {
			return Config{}, fmt.Errorf("config: invalid PORT %q", v)
		}
	}
	setString(&cfg.DBPath, getenv("DB_PATH"))
	cfg.HostURL = strings.TrimRight(getenv("HOST_URL"), "/")
	if cfg.HostURL == "" {
		cfg.HostURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	cfg.ClientID = getenv("CLIENT_ID")
	cfg.ClientSecret = getenv("CLIENT_SECRET")
	setString(&cfg.TokenURL, getenv("TOKEN_URL"))
	setString(&cfg.UserInfoURL, getenv("USER_INFO_URL"))
	setString(&cfg.UserRepoURL, getenv("USER_REPO_URL"))

	if v := getenv("UPSTREAM_TIMEOUT"); v != "" {
		if cfg.UpstreamTimeout, err = time.ParseDuration(v); err != nil || cfg.UpstreamTimeout <= 0 {
			return Config{}, fmt.Errorf("config: invalid UPSTREAM_TIMEOUT %q", v)
		}
	}
	if v := getenv("UPSTREAM_RPS"); v != "" {
		if cfg.UpstreamRPS, err = strconv.ParseFloat(v, 64); err != nil || cfg.UpstreamRPS < 0 {
			return Config{}, fmt.Errorf("config: invalid UPSTREAM_RPS %q", v)
		}
	}
	if v := getenv("FANOUT_CONCURRENCY"); v != "" {
		if cfg.FanoutConcurrency, err = strconv.Atoi(v); err != nil || cfg.FanoutConcurrency < 1 {
			return Config{}, fmt.Errorf("config: invalid FANOUT_CONCURRENCY %q", v)
		}
	}

	cfg.SessionSecret = getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		if cfg.SessionSecret, err = randomSecret(); err != nil {
			return Config{}, fmt.Errorf("config: generating session secret: %w", err)
		}
		cfg.SessionSecretGenerated = true
	}
	if v := getenv("SESSION_TTL"); v != "" {
		if cfg.SessionTTL, err = time.ParseDuration(v); err != nil || cfg.SessionTTL <= 0 {
			return Config{}, fmt.Errorf("config: invalid SESSION_TTL %q", v)
		}
	}
	cfg.TokenEncryptionKey = getenv("TOKEN_ENCRYPTION_KEY")

	if v := getenv("LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return Config{}, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", v, err)
		}
	}
	if v := strings.ToLower(getenv("LOG_FORMAT")); v != "" {
		if v != "text" && v != "json" {
			return Config{}, fmt.Errorf("config: invalid LOG_FORMAT %q (want text or json)", v)
		}
		cfg.LogFormat = v
	}

	return cfg, nil
}

// NewLogger builds the process logger. "text" is the colored tint console
// handler; "json" is for log shippers.
func NewLogger(cfg Config, w io.Writer) *slog.Logger {
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      cfg.LogLevel,
		TimeFormat: time.Kitchen,
	}))
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
