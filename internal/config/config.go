// Package config loads server configuration from the environment, with an
// optional .env file for development setups.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the startup configuration surface of the server.
type Config struct {
	// Proxmox connection
	Host        string
	User        string
	Password    string
	TokenName   string
	TokenValue  string
	Fingerprint string
	VerifySSL   bool
	Timeout     time.Duration

	// Raw PROXMOX_ALLOW_DANGEROUS value; the safety gate interprets it
	// together with the command-line flag
	AllowDangerousEnv string

	// Serving
	Transport  string // "stdio" or "sse"
	ListenHost string
	Port       int

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded configuration from .env in current directory")
	}

	cfg := &Config{
		Host:              os.Getenv("PROXMOX_HOST"),
		User:              os.Getenv("PROXMOX_USER"),
		Password:          os.Getenv("PROXMOX_PASSWORD"),
		TokenName:         os.Getenv("PROXMOX_TOKEN_NAME"),
		TokenValue:        os.Getenv("PROXMOX_TOKEN_VALUE"),
		Fingerprint:       os.Getenv("PROXMOX_FINGERPRINT"),
		VerifySSL:         parseBool(os.Getenv("PROXMOX_VERIFY_SSL"), true),
		Timeout:           45 * time.Second,
		AllowDangerousEnv: os.Getenv("PROXMOX_ALLOW_DANGEROUS"),
		Transport:         "sse",
		ListenHost:        "0.0.0.0",
		Port:              8051,
		LogLevel:          "info",
		LogFormat:         "auto",
	}

	if transport := os.Getenv("TRANSPORT"); transport != "" {
		cfg.Transport = strings.ToLower(transport)
	}
	if host := os.Getenv("HOST"); host != "" {
		cfg.ListenHost = host
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("invalid PORT value %q", port)
		}
		cfg.Port = p
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if timeout := os.Getenv("PROXMOX_TIMEOUT"); timeout != "" {
		seconds, err := strconv.Atoi(timeout)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid PROXMOX_TIMEOUT value %q", timeout)
		}
		cfg.Timeout = time.Duration(seconds) * time.Second
	}

	return cfg, nil
}

// Validate checks that the configuration is sufficient to reach a cluster.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("PROXMOX_HOST is required (you can create a .env file based on .env.example)")
	}
	hasToken := c.TokenName != "" && c.TokenValue != ""
	hasPassword := c.User != "" && c.Password != ""
	if !hasToken && !hasPassword {
		return fmt.Errorf("either PROXMOX_TOKEN_NAME/PROXMOX_TOKEN_VALUE or PROXMOX_USER/PROXMOX_PASSWORD must be set")
	}
	switch c.Transport {
	case "stdio", "sse":
	default:
		return fmt.Errorf("unsupported TRANSPORT %q (expected stdio or sse)", c.Transport)
	}
	return nil
}

// parseBool interprets common boolean spellings, mirroring what operators
// put in .env files. falsy: false/0/f/no/off; everything else keeps def
// semantics: explicit truthy enables, unknown values fall back to default.
func parseBool(value string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return def
	case "false", "0", "f", "no", "off":
		return false
	case "true", "1", "t", "yes", "on":
		return true
	default:
		return def
	}
}
