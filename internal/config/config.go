// Package config loads settings from an optional .env file, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Server struct {
	Addr            string        `env:"VETO_ADDR" envDefault:":8080"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	JWTSecret       string        `env:"VETO_JWT_SECRET"`
	AllowedOrigins  []string      `env:"VETO_ALLOWED_ORIGINS" envSeparator:","`
	LogLevel        string        `env:"VETO_LOG_LEVEL" envDefault:"info"`
	Development     bool          `env:"VETO_DEV"`
	ShutdownTimeout time.Duration `env:"VETO_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Client struct {
	ServerURL    string        `env:"VETO_SERVER_URL" envDefault:"http://localhost:8080"`
	Token        string        `env:"VETO_TOKEN"`
	UserID       string        `env:"VETO_USER_ID"`
	Username     string        `env:"VETO_USERNAME"`
	PollInterval time.Duration `env:"VETO_POLL_INTERVAL" envDefault:"3s"`
	LogLevel     string        `env:"VETO_LOG_LEVEL" envDefault:"warn"`
}

// LoadDotenv reads the given files (".env" when none) into the environment.
// Missing files are skipped; variables already set win.
func LoadDotenv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServer builds the server config from .env, environment and args.
func LoadServer(args []string) (Server, error) {
	var cfg Server
	if err := LoadDotenv(); err != nil {
		return Server{}, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return Server{}, err
	}

	fset := flag.NewFlagSet("veto-server", flag.ContinueOnError)
	cfg.BindFlags(fset)
	if err := fset.Parse(args); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// BindFlags registers flags defaulting to the current values.
func (c *Server) BindFlags(fset *flag.FlagSet) {
	fset.StringVar(&c.Addr, "addr", c.Addr, "listen address")
	fset.StringVar(&c.DatabaseURL, "db", c.DatabaseURL, "postgres DSN; in-memory rooms when empty")
	fset.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fset.BoolVar(&c.Development, "dev", c.Development, "human-readable logs")
	fset.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "graceful shutdown limit")
	fset.Func("origins", "comma-separated CORS origins", func(v string) error {
		c.AllowedOrigins = splitList(v)
		return nil
	})
}

func (c Server) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address required (use -addr or VETO_ADDR)")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	return nil
}

// LoadClient reads the client config from .env and the environment. Flags are
// bound separately per subcommand.
func LoadClient() (Client, error) {
	var cfg Client
	if err := LoadDotenv(); err != nil {
		return Client{}, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

func (c *Client) BindFlags(fset *flag.FlagSet) {
	fset.StringVar(&c.ServerURL, "server", c.ServerURL, "veto server base URL")
	fset.StringVar(&c.Token, "token", c.Token, "bearer token; also sets the user when -user is empty")
	fset.StringVar(&c.UserID, "user", c.UserID, "your user id")
	fset.StringVar(&c.Username, "name", c.Username, "your display name")
	fset.DurationVar(&c.PollInterval, "interval", c.PollInterval, "room refresh period")
	fset.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
}

func (c Client) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server URL required (use -server or VETO_SERVER_URL)")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
