// Package config loads bot settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // ALERT_TIMEZONE must resolve on minimal images

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"xrpl-buy-bot/internal/domain"
	"xrpl-buy-bot/internal/xrpl"
)

// Environment keys.
const (
	KeyTelegramToken     = "TELEGRAM_TOKEN"
	KeyGroqAPIKey        = "GROQ_API_KEY"
	KeyChatID            = "TELEGRAM_CHAT_ID"
	KeyMinBuyXRP         = "MIN_BUY_XRP"
	KeyXRPLURL           = "XRPL_WS_URL"
	KeyCurrency          = "TRACKED_CURRENCY"
	KeyIssuer            = "TRACKED_ISSUER"
	KeyPriceAPIURL       = "PRICE_API_URL"
	KeyPriceTimeout      = "PRICE_TIMEOUT"
	KeyReconnectDelay    = "RECONNECT_DELAY"
	KeyGroqBaseURL       = "GROQ_BASE_URL"
	KeyGroqModel         = "GROQ_MODEL"
	KeyChatRequestsPerMn = "CHAT_REQUESTS_PER_MINUTE"
	KeyTimezone          = "ALERT_TIMEZONE"
	KeyMetricsAddr       = "METRICS_ADDR"
	KeyLogLevel          = "LOG_LEVEL"
)

// ErrMissing is returned when required settings are absent.
var ErrMissing = errors.New("missing required configuration")

var defaults = map[string]string{
	KeyMinBuyXRP:         "1.0",
	KeyXRPLURL:           "wss://xrplcluster.com",
	KeyCurrency:          "UCK",
	KeyIssuer:            "rsMH5RBCYohAHXqVK3ShaYrR2vAS5rmdNB",
	KeyPriceAPIURL:       "https://api.xpmarket.com/api/v1/tokens",
	KeyPriceTimeout:      "5s",
	KeyReconnectDelay:    "10s",
	KeyGroqBaseURL:       "https://api.groq.com/openai/v1",
	KeyGroqModel:         "llama-3.3-70b-versatile",
	KeyChatRequestsPerMn: "30",
	KeyTimezone:          "America/New_York",
	KeyMetricsAddr:       ":9090",
	KeyLogLevel:          "info",
}

// Config holds all runtime settings. Read-only after Load.
type Config struct {
	TelegramToken string
	GroqAPIKey    string
	ChatID        string

	Asset     domain.TrackedAsset
	MinBuyXRP decimal.Decimal

	XRPLURL        string
	ReconnectDelay time.Duration

	PriceAPIURL  string
	PriceTimeout time.Duration

	GroqBaseURL           string
	GroqModel             string
	ChatRequestsPerMinute int

	Location    *time.Location
	MetricsAddr string // empty disables the metrics server
	LogLevel    string
}

// Load reads envFile (skipped when empty or absent) and the process
// environment. Environment variables take precedence over the file.
// Format errors are returned; required keys are checked by RequireSecrets.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", envFile, err)
		default:
			for key, value := range values {
				v.SetDefault(key, value)
			}
		}
	}

	get := func(key string) string {
		if s := strings.TrimSpace(v.GetString(key)); s != "" {
			return s
		}
		return defaults[key]
	}

	cfg := &Config{
		TelegramToken: strings.TrimSpace(v.GetString(KeyTelegramToken)),
		GroqAPIKey:    strings.TrimSpace(v.GetString(KeyGroqAPIKey)),
		ChatID:        strings.TrimSpace(v.GetString(KeyChatID)),
		Asset: domain.TrackedAsset{
			Currency: get(KeyCurrency),
			Issuer:   get(KeyIssuer),
		},
		XRPLURL:     get(KeyXRPLURL),
		PriceAPIURL: get(KeyPriceAPIURL),
		GroqBaseURL: get(KeyGroqBaseURL),
		GroqModel:   get(KeyGroqModel),
		MetricsAddr: strings.TrimSpace(v.GetString(KeyMetricsAddr)),
		LogLevel:    strings.ToLower(get(KeyLogLevel)),
	}

	if err := xrpl.ValidateClassicAddress(cfg.Asset.Issuer); err != nil {
		return nil, fmt.Errorf("%s: %w", KeyIssuer, err)
	}

	minBuy, err := decimal.NewFromString(get(KeyMinBuyXRP))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyMinBuyXRP, err)
	}
	if minBuy.IsNegative() {
		return nil, fmt.Errorf("%s: must not be negative, got %s", KeyMinBuyXRP, minBuy)
	}
	cfg.MinBuyXRP = minBuy

	if cfg.PriceTimeout, err = parseDuration(KeyPriceTimeout, get(KeyPriceTimeout)); err != nil {
		return nil, err
	}
	if cfg.ReconnectDelay, err = parseDuration(KeyReconnectDelay, get(KeyReconnectDelay)); err != nil {
		return nil, err
	}

	if cfg.ChatRequestsPerMinute, err = strconv.Atoi(get(KeyChatRequestsPerMn)); err != nil {
		return nil, fmt.Errorf("%s: %w", KeyChatRequestsPerMn, err)
	}

	if cfg.Location, err = time.LoadLocation(get(KeyTimezone)); err != nil {
		return nil, fmt.Errorf("%s: %w", KeyTimezone, err)
	}

	return cfg, nil
}

// RequireSecrets reports every missing required key in one error.
func (c *Config) RequireSecrets() error {
	var missing []string
	if c.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}
	if c.GroqAPIKey == "" {
		missing = append(missing, KeyGroqAPIKey)
	}
	if c.ChatID == "" {
		missing = append(missing, KeyChatID)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}

// RedactedSummary describes the configuration without secrets.
func (c *Config) RedactedSummary() string {
	return fmt.Sprintf("config: asset=%s min_buy=%s XRP chat=%s xrpl=%s reconnect=%s price=%s model=%s tz=%s telegram_token=%s groq_key=%s",
		c.Asset, c.MinBuyXRP, c.ChatID, c.XRPLURL, c.ReconnectDelay, c.PriceAPIURL, c.GroqModel,
		c.Location, redact(c.TelegramToken), redact(c.GroqAPIKey))
}

func redact(secret string) string {
	if secret == "" {
		return "<unset>"
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

// parseDuration accepts Go durations ("5s") or plain seconds ("5", "2.5").
func parseDuration(key, s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("%s: must not be negative, got %s", key, s)
		}
		return d, nil
	}
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, s)
	}
	if secs < 0 {
		return 0, fmt.Errorf("%s: must not be negative, got %s", key, s)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
