package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("fincoach version %s, commit %s, built at %s", version, commit, date)
}

// Environment selects cookie security and secret-key policy.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

type Config struct {
	Env     Environment   `mapstructure:"env" validate:"oneof=development production"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Session SessionConfig `mapstructure:"session"`

	// Derived once during Load and read-only afterwards. Auth0 matches
	// redirect URIs against an allow list, so these must stay stable for
	// the lifetime of the process.
	BaseURL     string `mapstructure:"-"`
	CallbackURL string `mapstructure:"-"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// BaseURL overrides environment detection when set (e.g. a custom
	// domain in front of a reverse proxy).
	BaseURL string `mapstructure:"base_url"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

type AuthConfig struct {
	Provider     string   `mapstructure:"provider"` // auth0
	Domain       string   `mapstructure:"domain" validate:"required"`
	ClientID     string   `mapstructure:"client_id" validate:"required"`
	ClientSecret string   `mapstructure:"client_secret" validate:"required"`
	Scopes       []string `mapstructure:"scopes"`
	CallbackPath string   `mapstructure:"callback_path"`
	// EnableDebugRoute exposes /auth/debug, which dumps session key names
	// and the stored profile. Off unless explicitly requested.
	EnableDebugRoute bool `mapstructure:"enable_debug_route"`
}

type SessionConfig struct {
	SecretKey  string        `mapstructure:"secret_key"`
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.String("env", "", "Environment (development|production)")
	pflag.String("config-file", "", "Path to an explicit config file")
	// Note: no pflag.Parse() here as it's called in main.go
}

func Load() (*Config, error) {
	// .env first, same as the original deployment scripts expect.
	// A missing file is not an error.
	_ = godotenv.Load()

	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("FINCOACH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	setDefaults()

	// Load ./config.yaml when present; an env-only deployment is fine.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/fincoach")

	if file := viper.GetString("config-file"); file != "" {
		viper.SetConfigFile(file)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if env := viper.GetString("env"); env != "" {
		config.Env = Environment(env)
	}

	applyLegacyEnv(&config)

	if config.Session.SecretKey == "" {
		if config.Env == EnvProduction {
			return nil, fmt.Errorf("session.secret_key is required in production, set it in the config or via FINCOACH_SESSION_SECRET_KEY / APP_SECRET_KEY")
		}
		config.Session.SecretKey = randomSecret()
	}

	config.BaseURL = deriveBaseURL(&config)
	config.CallbackURL = config.BaseURL + config.Auth.CallbackPath

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("missing or invalid Auth0 configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("env", string(EnvDevelopment))
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.base_url", "")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")
	viper.SetDefault("auth.provider", "auth0")
	viper.SetDefault("auth.domain", "")
	viper.SetDefault("auth.client_id", "")
	viper.SetDefault("auth.client_secret", "")
	viper.SetDefault("auth.scopes", []string{"openid", "profile", "email"})
	viper.SetDefault("auth.callback_path", "/auth/callback")
	viper.SetDefault("auth.enable_debug_route", false)
	viper.SetDefault("session.secret_key", "")
	viper.SetDefault("session.cookie_name", "fincoach_session")
	viper.SetDefault("session.ttl", time.Hour)
}

// applyLegacyEnv honors the variable names the original deployment used
// (AUTH0_DOMAIN, AUTH0_CLIENT_ID, AUTH0_CLIENT_SECRET, APP_SECRET_KEY), so
// an existing .env keeps working unchanged.
func applyLegacyEnv(config *Config) {
	if config.Auth.Domain == "" {
		config.Auth.Domain = os.Getenv("AUTH0_DOMAIN")
	}
	if config.Auth.ClientID == "" {
		config.Auth.ClientID = os.Getenv("AUTH0_CLIENT_ID")
	}
	if config.Auth.ClientSecret == "" {
		config.Auth.ClientSecret = os.Getenv("AUTH0_CLIENT_SECRET")
	}
	if config.Session.SecretKey == "" {
		config.Session.SecretKey = os.Getenv("APP_SECRET_KEY")
	}
}

// deriveBaseURL picks the externally visible URL of this app. GitHub
// Codespaces forwards port 5000 on a generated hostname that cannot be
// hardcoded; everything else defaults to plain host:port.
func deriveBaseURL(config *Config) string {
	if config.Server.BaseURL != "" {
		return strings.TrimRight(config.Server.BaseURL, "/")
	}
	if codespace := os.Getenv("CODESPACE_NAME"); codespace != "" {
		return fmt.Sprintf("https://%s-%d.app.github.dev", codespace, config.Server.Port)
	}
	return fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// if random does not work, we have a big problem
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// IsProduction reports whether the app runs with production cookie policy.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}
