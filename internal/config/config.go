// Package config collects the service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pawtrait-pals/pawtrait/internal/capture"
)

// DefaultTabTTL is how long an idle browser tab keeps its capture surface.
const DefaultTabTTL = 30 * time.Minute

type Config struct {
	Port         string
	ReadTimeout  time.Duration
	HandoffQuota int
	HandoffTTL   time.Duration
	TabTTL       time.Duration
	CatalogPath  string
	AccessTokens []string
	UploadsDir   string
}

// Load reads PAWTRAIT_* variables, falling back to defaults for anything
// unset. Malformed values are an error rather than silently ignored.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         envOr("PAWTRAIT_PORT", "8888"),
		ReadTimeout:  capture.DefaultReadTimeout,
		HandoffQuota: capture.DefaultHandoffQuota,
		HandoffTTL:   capture.DefaultHandoffTTL,
		TabTTL:       DefaultTabTTL,
		CatalogPath:  os.Getenv("PAWTRAIT_CATALOG"),
		UploadsDir:   envOr("PAWTRAIT_UPLOADS_DIR", "uploads"),
	}

	var err error
	if cfg.ReadTimeout, err = durationEnv("PAWTRAIT_READ_TIMEOUT", cfg.ReadTimeout); err != nil {
		return nil, err
	}
	if cfg.HandoffTTL, err = durationEnv("PAWTRAIT_HANDOFF_TTL", cfg.HandoffTTL); err != nil {
		return nil, err
	}
	if cfg.TabTTL, err = durationEnv("PAWTRAIT_TAB_TTL", cfg.TabTTL); err != nil {
		return nil, err
	}
	if v := os.Getenv("PAWTRAIT_HANDOFF_QUOTA"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid PAWTRAIT_HANDOFF_QUOTA %q: must be a positive byte count", v)
		}
		cfg.HandoffQuota = n
	}

	for _, t := range strings.Split(os.Getenv("PAWTRAIT_ACCESS_TOKENS"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			cfg.AccessTokens = append(cfg.AccessTokens, t)
		}
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, v)
	}
	return d, nil
}
