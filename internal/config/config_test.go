package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pawtrait-pals/pawtrait/internal/capture"
)

var keys = []string{
	"PAWTRAIT_PORT",
	"PAWTRAIT_READ_TIMEOUT",
	"PAWTRAIT_HANDOFF_QUOTA",
	"PAWTRAIT_HANDOFF_TTL",
	"PAWTRAIT_TAB_TTL",
	"PAWTRAIT_CATALOG",
	"PAWTRAIT_ACCESS_TOKENS",
	"PAWTRAIT_UPLOADS_DIR",
}

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, env[k])
	}
}

func TestLoadDefaults(t *testing.T) {
	setEnv(t, nil)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := &Config{
		Port:         "8888",
		ReadTimeout:  capture.DefaultReadTimeout,
		HandoffQuota: capture.DefaultHandoffQuota,
		HandoffTTL:   capture.DefaultHandoffTTL,
		TabTTL:       DefaultTabTTL,
		UploadsDir:   "uploads",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"PAWTRAIT_PORT":          "3000",
		"PAWTRAIT_READ_TIMEOUT":  "5s",
		"PAWTRAIT_HANDOFF_QUOTA": "1048576",
		"PAWTRAIT_HANDOFF_TTL":   "10m",
		"PAWTRAIT_TAB_TTL":       "1h",
		"PAWTRAIT_CATALOG":       "/etc/pawtrait/catalog.yaml",
		"PAWTRAIT_ACCESS_TOKENS": "a, b,,",
		"PAWTRAIT_UPLOADS_DIR":   "/var/lib/pawtrait",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := &Config{
		Port:         "3000",
		ReadTimeout:  5 * time.Second,
		HandoffQuota: 1 << 20,
		HandoffTTL:   10 * time.Minute,
		TabTTL:       time.Hour,
		CatalogPath:  "/etc/pawtrait/catalog.yaml",
		AccessTokens: []string{"a", "b"},
		UploadsDir:   "/var/lib/pawtrait",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"PAWTRAIT_READ_TIMEOUT", "soon"},
		{"PAWTRAIT_READ_TIMEOUT", "-1s"},
		{"PAWTRAIT_HANDOFF_TTL", "0s"},
		{"PAWTRAIT_TAB_TTL", "forever"},
		{"PAWTRAIT_HANDOFF_QUOTA", "5MB"},
		{"PAWTRAIT_HANDOFF_QUOTA", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setEnv(t, map[string]string{tt.key: tt.value})
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}
