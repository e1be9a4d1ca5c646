package cfg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requiredArgs(extra ...string) []string {
	args := []string{
		"--reddit-client-id=client",
		"--reddit-client-secret=secret",
		"--reddit-username=xyMarketBot",
		"--reddit-password=hunter2",
	}
	return append(args, extra...)
}

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestLoadArgs_Defaults(t *testing.T) {
	cfg, err := LoadArgs(requiredArgs())
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "xyMarket", cfg.TargetSub)
	assert.Equal(t, "Daily Thread", cfg.DigestTitle)
	assert.Equal(t, 1, cfg.DigestSlot)
	assert.Equal(t, 2*time.Hour, cfg.FreshnessWindow)
	assert.Equal(t, 2*time.Hour, cfg.DedupWindow)
	assert.Equal(t, 7*24*time.Hour, cfg.RetentionWindow)
	assert.Equal(t, 24*time.Hour, cfg.DigestMaxAge)
	assert.Equal(t, time.Duration(0), cfg.ModeratorCacheTTL)
	assert.Equal(t, "api", cfg.IngestMode)
	assert.Same(t, cfg, Get())
}

func TestLoadArgs_Overrides(t *testing.T) {
	cfg, err := LoadArgs(requiredArgs(
		"--dedup-window=30m",
		"--retention-window=72h",
		"--ingest-mode=atom",
		"--worker-count=4",
	))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.DedupWindow)
	assert.Equal(t, 2*time.Hour, cfg.FreshnessWindow, "freshness and dedup windows are independent")
	assert.Equal(t, 72*time.Hour, cfg.RetentionWindow)
	assert.Equal(t, "atom", cfg.IngestMode)
	assert.Equal(t, 4, cfg.WorkerCount)
}

func TestLoadArgs_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"zero freshness window", requiredArgs("--freshness-window=0s")},
		{"negative cache ttl", requiredArgs("--moderator-cache-ttl=-1m")},
		{"invalid digest slot", requiredArgs("--digest-slot=3")},
		{"mysql without password", requiredArgs("--db-driver=mysql")},
		{"missing credentials", []string{"--reddit-client-id=client"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadArgs(tt.args)
			assert.Error(t, err)
		})
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := &Cfg{
		DBHost:     "db",
		DBPort:     "3306",
		DBUser:     "market",
		DBPassword: "pw",
		DBName:     "market",
	}

	assert.Equal(t, "market:pw@tcp(db:3306)/market?parseTime=true&multiStatements=true", cfg.MySQLDSN())
}
