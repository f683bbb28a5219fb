package config

import (
	"os"
	"strconv"
)

// FromEnv overlays FILELOG_* environment variables onto cfg. Values that do
// not parse are ignored.
func FromEnv(cfg *Config) {
	if v := os.Getenv("FILELOG_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("FILELOG_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Port = n
		}
	}
	if v, ok := os.LookupEnv("FILELOG_HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("FILELOG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("FILELOG_NAME_REGEX"); v != "" {
		cfg.NameRegex = v
	}
	if v := os.Getenv("FILELOG_MAX_PAYLOAD_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPayloadBytes = n
		}
	}
	if v := os.Getenv("FILELOG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FILELOG_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}
