// Package config loads the process configuration from flags, the
// environment and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable, e.g. LOGINPAGE_ADDR
const EnvPrefix = "LOGINPAGE"

// API modes
const (
	ModeMock   = "mock"
	ModeRemote = "remote"
)

// Config holds the loginpage server configuration.
type Config struct {
	// Addr is the listen address of the fiber app.
	Addr string `mapstructure:"addr"`
	// Debug enables debug logs and payload dumps.
	Debug bool `mapstructure:"debug"`
	// APIMode is "mock" to serve the in-process mock API or "remote" to
	// drive the flow through an HTTP client against APIURL.
	APIMode string `mapstructure:"api-mode"`
	// APIURL is the base URL of a remote API. Required in remote mode.
	APIURL string `mapstructure:"api-url"`
	// APIRetries is the number of retries on transport failures.
	APIRetries int `mapstructure:"api-retries"`

	CodeExpiration time.Duration `mapstructure:"code-expiration"`
	LoginDelay     time.Duration `mapstructure:"login-delay"`
	VerifyDelay    time.Duration `mapstructure:"verify-delay"`
	RequestDelay   time.Duration `mapstructure:"request-delay"`

	// SigningKey signs the session tokens of the mock API.
	SigningKey string        `mapstructure:"signing-key"`
	TokenTTL   time.Duration `mapstructure:"token-ttl"`

	VisitorTTL    time.Duration `mapstructure:"visitor-ttl"`
	SweepInterval time.Duration `mapstructure:"sweep-interval"`
	ProbeInterval time.Duration `mapstructure:"probe-interval"`
}

// Remote reports whether the flow talks to a remote API
func (c *Config) Remote() bool {
	return c.APIMode == ModeRemote
}

// Validate checks the loaded values
func (c Config) Validate() error {
	urlRules := []validation.Rule{is.URL}
	if c.APIMode == ModeRemote {
		urlRules = append(urlRules, validation.Required.Error("api-url is required in remote mode"))
	}

	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.APIMode, validation.In(ModeMock, ModeRemote)),
		validation.Field(&c.APIURL, urlRules...),
		validation.Field(&c.APIRetries, validation.Min(0)),
		validation.Field(&c.CodeExpiration, validation.Min(time.Second)),
		validation.Field(&c.SigningKey, validation.Required, validation.RuneLength(16, 0)),
		validation.Field(&c.TokenTTL, validation.Min(time.Second)),
	)
}

// Flags returns the command line flags understood by Load
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("loginpage", pflag.ContinueOnError)

	fs.String("addr", ":8080", "listen address")
	fs.Bool("debug", false, "enable debug logging")
	fs.String("api-mode", ModeMock, "api backend: mock or remote")
	fs.String("api-url", "", "base URL of the remote api")
	fs.Int("api-retries", 0, "retries on transport failures")
	fs.Duration("code-expiration", 30*time.Second, "two-factor code lifetime")
	fs.Duration("login-delay", 800*time.Millisecond, "simulated login latency")
	fs.Duration("verify-delay", 600*time.Millisecond, "simulated verify latency")
	fs.Duration("request-delay", 500*time.Millisecond, "simulated new code latency")
	fs.String("signing-key", "loginpage-development-key", "session token signing key")
	fs.Duration("token-ttl", 15*time.Minute, "session token lifetime")
	fs.Duration("visitor-ttl", 30*time.Minute, "idle visitor lifetime")
	fs.Duration("sweep-interval", time.Minute, "idle visitor sweep interval")
	fs.Duration("probe-interval", 5*time.Second, "remote api health check interval")

	return fs
}

// Load parses args, reads .env (if present) and the environment, and
// returns the validated config. Flags override env vars, which override
// .env, which overrides defaults.
func Load(args []string) (*Config, error) {
	fs := Flags()
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !isMissingFile(err) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: bind flags: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}

func isMissingFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return true
	}
	return errors.Is(err, os.ErrNotExist)
}
