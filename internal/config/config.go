// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// DatabaseDSN holds the PostgreSQL connection string. Empty selects the in-memory user store.
	DatabaseDSN string `json:"database_dsn"`

	// RedisURL holds the Redis connection URL. Empty selects the in-memory session store.
	RedisURL string `json:"redis_url"`

	// SessionTTL is the lifetime of a session and of its cookie.
	SessionTTL Duration `json:"session_ttl"`

	// CookieName is the name of the session cookie.
	CookieName string `json:"cookie_name"`

	// CookieSecure forces the Secure attribute on the session cookie.
	CookieSecure bool `json:"cookie_secure"`

	// TOTPIssuer is the issuer label shown by authenticator apps.
	TOTPIssuer string `json:"totp_issuer"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// LogLevel is the minimum zap level.
	LogLevel string `json:"log_level"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// TLSEnabled reports whether a certificate and key were configured.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}

// Duration is a time.Duration that reads "1h30m" style strings from JSON.
type Duration struct {
	time.Duration
}

// UnmarshalJSON accepts either a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		d.Duration = v
		return nil
	}
	var secs int64
	if err := json.Unmarshal(b, &secs); err != nil {
		return errors.New("duration must be a string or a number of seconds")
	}
	d.Duration = time.Duration(secs) * time.Second
	return nil
}

// Parse parses the command-line flags, the config file and environment
// variables. Errors are fatal at startup.
func Parse() *Options {
	opts, err := ParseArgs(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return opts
}

// ParseArgs registers flags on fs, parses args, then overlays the JSON
// config file and finally environment variables read through getenv.
func ParseArgs(fs *flag.FlagSet, args []string, getenv func(string) string) (*Options, error) {
	options := &Options{}

	fs.StringVar(&options.Port, "a", "localhost:7002", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.RedisURL, "r", "", "redis url for sessions")
	fs.DurationVar(&options.SessionTTL.Duration, "ttl", time.Hour, "session lifetime")
	fs.StringVar(&options.CookieName, "cookie", "authkeeper.sid", "session cookie name")
	fs.BoolVar(&options.CookieSecure, "cookie-secure", false, "always set the Secure cookie attribute")
	fs.StringVar(&options.TOTPIssuer, "issuer", "authkeeper", "TOTP issuer label")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "path to server TLS certificate")
	fs.StringVar(&options.TLSKey, "tls-key", "", "path to server TLS key")
	fs.StringVar(&options.LogLevel, "l", "info", "log level")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if v := getenv("SERVER_ADDRESS"); v != "" {
		options.Port = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		options.DatabaseDSN = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		options.RedisURL = v
	}
	if v := getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		options.SessionTTL.Duration = ttl
	}
	if v := getenv("COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
		}
		options.CookieSecure = secure
	}
	if v := getenv("TOTP_ISSUER"); v != "" {
		options.TOTPIssuer = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}

	if options.SessionTTL.Duration <= 0 {
		return nil, errors.New("session ttl must be positive")
	}

	return options, nil
}
