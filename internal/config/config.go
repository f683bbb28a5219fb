// Package config holds the settings for the filelog server and client.
//
// The server configuration starts from Default, may be replaced by a JSON file
// through Load, and is then overlaid with FILELOG_* environment variables by
// FromEnv. Command-line flags are applied last by the caller.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/0xRadioAc7iv/go-filelog/internal/entry"
)

const DEFAULT_HOST = "127.0.0.1"
const DEFAULT_PORT = 9999
const DEFAULT_HTTP_ADDR = "127.0.0.1:8090"
const DEFAULT_DATA_DIR = "./data"
const DEFAULT_NAME_REGEX = `^[a-z0-9_-]{1,64}$`
const DEFAULT_MAX_PAYLOAD_BYTES = 16 * 1024 * 1024

// Config is the server configuration.
type Config struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	HTTPAddr        string `json:"httpAddr"` // empty disables the REST listener
	DataDir         string `json:"dataDir"`
	NameRegex       string `json:"nameRegex"`
	MaxPayloadBytes int    `json:"maxPayloadBytes"`
	LogLevel        string `json:"logLevel"`
	LogFormat       string `json:"logFormat"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Host:            DEFAULT_HOST,
		Port:            DEFAULT_PORT,
		HTTPAddr:        DEFAULT_HTTP_ADDR,
		DataDir:         DEFAULT_DATA_DIR,
		NameRegex:       DEFAULT_NAME_REGEX,
		MaxPayloadBytes: DEFAULT_MAX_PAYLOAD_BYTES,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads a JSON configuration file on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DataDir == "" {
		return errors.New("data directory must be set")
	}
	if _, err := regexp.Compile(c.NameRegex); err != nil {
		return fmt.Errorf("invalid name regex: %w", err)
	}
	if c.MaxPayloadBytes <= 0 || uint64(c.MaxPayloadBytes) > entry.MaxPayloadSizeBytes {
		return fmt.Errorf("max payload bytes %d out of range", c.MaxPayloadBytes)
	}
	return nil
}

// Client is the connection configuration used by the TCP client.
type Client struct {
	Host string
	Port int
}

func DefaultClient() *Client {
	return &Client{
		Host: DEFAULT_HOST,
		Port: DEFAULT_PORT,
	}
}
