package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"towerkeep/server/internal/session"
	"towerkeep/server/internal/sim"
)

// serverConfig captures the deploy-time toggles, all read from the
// environment so container setups need no config files.
type serverConfig struct {
	Addr       string
	DataDir    string
	ArchiveDir string

	LogSinks    []string
	LogJSONPath string

	AuditIntervalTicks uint64
	TokenTTL           time.Duration
	EventMultiplierPct int
}

// normalized returns a config with defaults applied.
func (cfg serverConfig) normalized() serverConfig {
	normalized := cfg
	normalized.Addr = strings.TrimSpace(normalized.Addr)
	if normalized.Addr == "" {
		normalized.Addr = ":8080"
	}
	if normalized.DataDir == "" {
		normalized.DataDir = "data/players"
	}
	if len(normalized.LogSinks) == 0 {
		normalized.LogSinks = []string{"console"}
	}
	if normalized.AuditIntervalTicks == 0 {
		normalized.AuditIntervalTicks = 30
	}
	if normalized.TokenTTL <= 0 {
		normalized.TokenTTL = 10 * time.Minute
	}
	if normalized.EventMultiplierPct <= 0 {
		normalized.EventMultiplierPct = 100
	}
	return normalized
}

// configFromEnv reads TOWERKEEP_* variables. Unset or malformed values
// fall back to defaults rather than refusing to boot.
func configFromEnv() serverConfig {
	cfg := serverConfig{
		Addr:        os.Getenv("TOWERKEEP_ADDR"),
		DataDir:     os.Getenv("TOWERKEEP_DATA_DIR"),
		ArchiveDir:  os.Getenv("TOWERKEEP_ARCHIVE_DIR"),
		LogJSONPath: os.Getenv("TOWERKEEP_LOG_JSON_PATH"),
	}
	if sinks := os.Getenv("TOWERKEEP_LOG_SINKS"); sinks != "" {
		for _, name := range strings.Split(sinks, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.LogSinks = append(cfg.LogSinks, name)
			}
		}
	}
	if raw := os.Getenv("TOWERKEEP_AUDIT_INTERVAL_TICKS"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
			cfg.AuditIntervalTicks = v
		}
	}
	if raw := os.Getenv("TOWERKEEP_TOKEN_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			cfg.TokenTTL = d
		}
	}
	if raw := os.Getenv("TOWERKEEP_EVENT_MULTIPLIER_PCT"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			cfg.EventMultiplierPct = v
		}
	}
	return cfg.normalized()
}

// managerConfig maps the deploy config onto the verification service.
func (cfg serverConfig) managerConfig() session.ManagerConfig {
	return session.ManagerConfig{
		SimConfig:          sim.DefaultConfig(),
		AuditInterval:      cfg.AuditIntervalTicks,
		TokenTTL:           cfg.TokenTTL,
		EventMultiplierPct: cfg.EventMultiplierPct,
	}
}
