package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"loyalty-wallet-bridge/internal/validation"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `json:"server"`
	Security    SecurityConfig    `json:"security"`
	Logger      LoggerConfig      `json:"logger"`
	Tracing     TracingConfig     `json:"tracing"`
	Credentials CredentialsConfig `json:"credentials"`
	Loyalty     LoyaltyConfig     `json:"loyalty"`
	Wallet      WalletConfig      `json:"wallet"`
	Webhook     WebhookConfig     `json:"webhook"`
	Features    FeaturesConfig    `json:"features"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	AppEnv    string `json:"app_env"`
	Port      string `json:"port"`
	Host      string `json:"host"`
	StaticDir string `json:"static_dir"`
	// Timeout applied to outbound HTTP calls; zero disables it.
	ClientTimeout Duration `json:"client_timeout"`
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// Max request body size in bytes (default: 1MB)
	MaxRequestBodySize int64 `json:"max_request_body_size"`
	// Allowed CORS origins (comma-separated)
	AllowedOrigins string `json:"allowed_origins"`
}

// LoggerConfig holds zap logger configuration.
type LoggerConfig struct {
	Level             string `json:"level"`
	Encoding          string `json:"encoding"`
	DisableCaller     bool   `json:"disable_caller"`
	DisableStacktrace bool   `json:"disable_stacktrace"`
}

// TracingConfig holds OpenTelemetry configuration.
type TracingConfig struct {
	Enabled     bool    `json:"enabled"`
	Endpoint    string  `json:"endpoint"`
	SampleRatio float64 `json:"sample_ratio"`
}

// CredentialsConfig names the environment variable holding the wallet
// service-account credential (inline JSON or a file path).
type CredentialsConfig struct {
	EnvKey string `json:"env_key"`
}

// LoyaltyConfig holds Voucherify API configuration.
type LoyaltyConfig struct {
	BaseURL       string `json:"base_url"`
	ApplicationID string `json:"application_id"`
	SecretKey     string `json:"secret_key"`
	Channel       string `json:"channel"`
	ProgramID     string `json:"program_id"`
	ProgramName   string `json:"program_name"`
}

// WalletConfig holds Google Wallet issuer, API and pass presentation settings.
type WalletConfig struct {
	IssuerID       string `json:"issuer_id"`
	ClassID        string `json:"class_id"`
	ObjectPostfix  string `json:"object_postfix"`
	APIURL         string `json:"api_url"`
	Scopes         string `json:"scopes"`
	EnableSmartTap bool   `json:"enable_smart_tap"`

	MainImageURI string `json:"main_image_uri"`
	LogoImageURI string `json:"logo_image_uri"`
	HeroImageURI string `json:"hero_image_uri"`

	OfficialSite  string `json:"official_site"`
	PhoneNumber   string `json:"phone_number"`
	Location      string `json:"location"`
	Email         string `json:"email"`
	HexBackground string `json:"hex_background_color"`
	CardTitle     string `json:"card_title"`
	Subheader     string `json:"subheader"`
}

// WebhookConfig holds inbound webhook configuration.
type WebhookConfig struct {
	Secret      string   `json:"secret"`
	SyncTimeout Duration `json:"sync_timeout"`
}

// FeaturesConfig holds the initial state of runtime feature flags.
type FeaturesConfig struct {
	LoyaltyEnrichment bool `json:"loyalty_enrichment"`
	WebhookSync       bool `json:"webhook_sync"`
}

// Duration is a time.Duration that reads "30s"-style strings from JSON.
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(time.Duration(secs * float64(time.Second)))
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default wallet and loyalty values.
const (
	DefaultLoyaltyBaseURL = "https://api.voucherify.io"
	DefaultLoyaltyChannel = "GoogleWalletPOC"
	DefaultWalletAPIURL   = "https://walletobjects.googleapis.com/walletobjects/v1"
	DefaultWalletScopes   = "https://www.googleapis.com/auth/wallet_object.issuer"
	DefaultOfficialSite   = "https://voucherify.io/"
	DefaultPhoneNumber    = "tel:+1234567890"
	DefaultLocation       = "https://maps.app.goo.gl/f4A45rhuSNMXrVsb9"
	DefaultEmail          = "mailto:support@voucherify.io"
	DefaultHexBackground  = "#fcba03"
	DefaultCardTitle      = "Loyalty Card"
	DefaultSubheader      = "Card Holder"
	DefaultCredentialsKey = "GOOGLE_APPLICATION_CREDENTIALS"
)

// LoadConfig loads configuration from environment variables and/or config file.
// Environment variables take precedence over config file values.
func LoadConfig(configFile string) (*Config, error) {
	cfg := Defaults()

	// Load from config file if provided
	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override with environment variables (they take precedence)
	overrideFromEnv(cfg)

	return cfg, nil
}

// Defaults returns a configuration populated only with default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:        "production",
			Port:          "3000",
			StaticDir:     "./public",
			ClientTimeout: Duration(30 * time.Second),
		},
		Security: SecurityConfig{
			MaxRequestBodySize: 1 << 20,
			AllowedOrigins:     "*",
		},
		Logger: LoggerConfig{
			Level:             "info",
			Encoding:          "json",
			DisableStacktrace: true,
		},
		Tracing: TracingConfig{
			Endpoint: "http://localhost:14268/api/traces",
		},
		Credentials: CredentialsConfig{
			EnvKey: DefaultCredentialsKey,
		},
		Loyalty: LoyaltyConfig{
			BaseURL: DefaultLoyaltyBaseURL,
			Channel: DefaultLoyaltyChannel,
		},
		Wallet: WalletConfig{
			APIURL:         DefaultWalletAPIURL,
			Scopes:         DefaultWalletScopes,
			EnableSmartTap: true,
			OfficialSite:   DefaultOfficialSite,
			PhoneNumber:    DefaultPhoneNumber,
			Location:       DefaultLocation,
			Email:          DefaultEmail,
			HexBackground:  DefaultHexBackground,
			CardTitle:      DefaultCardTitle,
			Subheader:      DefaultSubheader,
		},
		Webhook: WebhookConfig{
			SyncTimeout: Duration(30 * time.Second),
		},
		Features: FeaturesConfig{
			LoyaltyEnrichment: true,
			WebhookSync:       true,
		},
	}
}

// loadFromFile loads configuration from a JSON file.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, cfg)
}

// overrideFromEnv overrides configuration with environment variables.
func overrideFromEnv(cfg *Config) {
	setString(&cfg.Server.AppEnv, "APP_ENV")
	setString(&cfg.Server.Port, "SERVER_PORT")
	setString(&cfg.Server.Host, "SERVER_HOST")
	setString(&cfg.Server.StaticDir, "STATIC_DIR")
	setDuration(&cfg.Server.ClientTimeout, "HTTP_CLIENT_TIMEOUT")

	setInt64(&cfg.Security.MaxRequestBodySize, "MAX_REQUEST_BODY_SIZE")
	setString(&cfg.Security.AllowedOrigins, "ALLOWED_ORIGINS")

	setString(&cfg.Logger.Level, "LOGGER_LEVEL")
	setString(&cfg.Logger.Encoding, "LOGGER_ENCODING")
	setBool(&cfg.Logger.DisableCaller, "LOGGER_DISABLE_CALLER")
	setBool(&cfg.Logger.DisableStacktrace, "LOGGER_DISABLE_STACKTRACE")

	setBool(&cfg.Tracing.Enabled, "TRACING_ENABLED")
	setString(&cfg.Tracing.Endpoint, "TRACING_ENDPOINT")
	setFloat64(&cfg.Tracing.SampleRatio, "TRACING_SAMPLE_RATIO")

	setString(&cfg.Credentials.EnvKey, "CREDENTIALS_ENV_KEY")

	setString(&cfg.Loyalty.BaseURL, "VOUCHERIFY_BASE_URL")
	setString(&cfg.Loyalty.ApplicationID, "VOUCHERIFY_APPLICATION_ID")
	setString(&cfg.Loyalty.SecretKey, "VOUCHERIFY_SECRET_KEY")
	setString(&cfg.Loyalty.Channel, "VOUCHERIFY_CHANNEL")
	setString(&cfg.Loyalty.ProgramID, "LOYALTY_PROGRAM_ID")
	setString(&cfg.Loyalty.ProgramName, "LOYALTY_PROGRAM_NAME")

	setString(&cfg.Wallet.IssuerID, "ISSUER_ID")
	setString(&cfg.Wallet.ClassID, "GOOGLE_WALLET_LOYALTY_CARD_CLASS_ID")
	setString(&cfg.Wallet.ObjectPostfix, "GOOGLE_WALLET_LOYALTY_CARD_OBJECT_POSTFIX")
	setString(&cfg.Wallet.APIURL, "GOOGLE_WALLET_API_URL")
	setString(&cfg.Wallet.Scopes, "GOOGLE_WALLET_API_SCOPES")
	setBool(&cfg.Wallet.EnableSmartTap, "GOOGLE_WALLET_SMART_TAP")
	setString(&cfg.Wallet.MainImageURI, "GOOGLE_WALLET_MAIN_IMAGE_URI")
	setString(&cfg.Wallet.LogoImageURI, "GOOGLE_WALLET_LOGO_IMAGE_URI")
	setString(&cfg.Wallet.HeroImageURI, "GOOGLE_WALLET_HERO_IMAGE_URI")
	setString(&cfg.Wallet.OfficialSite, "GOOGLE_WALLET_OFFICIAL_SITE")
	setString(&cfg.Wallet.PhoneNumber, "GOOGLE_WALLET_PHONE_NUMBER")
	setString(&cfg.Wallet.Location, "GOOGLE_WALLET_LOCATION")
	setString(&cfg.Wallet.Email, "GOOGLE_WALLET_EMAIL")
	setString(&cfg.Wallet.HexBackground, "GOOGLE_WALLET_HEX_BACKGROUND_COLOR")
	setString(&cfg.Wallet.CardTitle, "GOOGLE_WALLET_CARD_TITLE")
	setString(&cfg.Wallet.Subheader, "GOOGLE_WALLET_SUBHEADER")

	setString(&cfg.Webhook.Secret, "VOUCHERIFY_WEBHOOK_SECRET")
	setDuration(&cfg.Webhook.SyncTimeout, "WEBHOOK_SYNC_TIMEOUT")

	setBool(&cfg.Features.LoyaltyEnrichment, "FEATURE_LOYALTY_ENRICHMENT")
	setBool(&cfg.Features.WebhookSync, "FEATURE_WEBHOOK_SYNC")
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setBool(dst *bool, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = strings.ToLower(value) == "true" || value == "1"
	}
}

func setInt64(dst *int64, key string) {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			*dst = i
		}
	}
}

func setFloat64(dst *float64, key string) {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			*dst = f
		}
	}
}

func setDuration(dst *Duration, key string) {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			*dst = Duration(d)
		}
	}
}

// ScopeList splits the configured scopes on commas and whitespace.
func (w WalletConfig) ScopeList() []string {
	return strings.FieldsFunc(w.Scopes, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}

// IsDevelopment reports whether the service runs in a development environment.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.AppEnv)
	return env == "development" || env == "dev" || env == "local"
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Security.MaxRequestBodySize <= 0 {
		return fmt.Errorf("max request body size must be positive")
	}
	if c.Server.ClientTimeout < 0 {
		return fmt.Errorf("http client timeout must not be negative")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing sample ratio must be between 0 and 1")
	}
	if c.Webhook.SyncTimeout < 0 {
		return fmt.Errorf("webhook sync timeout must not be negative")
	}
	if c.Credentials.EnvKey == "" {
		return fmt.Errorf("credentials env key is required")
	}
	if c.Wallet.APIURL == "" {
		return fmt.Errorf("wallet api url is required")
	}
	if c.Loyalty.BaseURL == "" {
		return fmt.Errorf("loyalty base url is required")
	}
	if err := validation.ValidateHexColor(c.Wallet.HexBackground, "hex_background_color"); err != nil {
		return err
	}
	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logger level %q", c.Logger.Level)
	}
	return nil
}
