package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
storage:
  bucket: test-bucket
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, defaultMasterURL, cfg.Universe.MasterURL)
	assert.Equal(t, "kospi50", cfg.Universe.MembershipFlag)
	assert.Equal(t, defaultHantooBaseURL, cfg.Hantoo.BaseURL)
	assert.True(t, cfg.Hantoo.WatchToken)
	assert.Equal(t, 100000, cfg.Hantoo.MaxRecords)
	assert.Equal(t, "test-bucket", cfg.Storage.Bucket)
	assert.Equal(t, "hantoo-stock-kline-1m", cfg.Storage.Prefix)
	assert.Equal(t, 50, cfg.Ingest.ChunkSize)
	assert.Equal(t, 5, cfg.Ingest.Workers)
	assert.Equal(t, 500, cfg.Ingest.ChunkPauseMillis)
	assert.Equal(t, "Asia/Seoul", cfg.Ingest.Timezone)
	assert.Equal(t, 60, cfg.Ingest.CompletenessWindow)
}

func TestLoadExplicitValuesWin(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
storage:
  bucket: test-bucket
  prefix: "custom/prefix/"
universe:
  membership_flag: kospi200
ingest:
  chunk_size: 20
  workers: 4
  timezone: UTC
hantoo:
  watch_token: false
`))
	require.NoError(t, err)
	assert.Equal(t, "kospi200", cfg.Universe.MembershipFlag)
	assert.Equal(t, "custom/prefix", cfg.Storage.Prefix, "prefix is trimmed of slashes")
	assert.Equal(t, 20, cfg.Ingest.ChunkSize)
	assert.Equal(t, 4, cfg.Ingest.Workers)
	assert.Equal(t, "UTC", cfg.Ingest.Timezone)
	assert.False(t, cfg.Hantoo.WatchToken)
}

func TestLoadRejectsMissingBucket(t *testing.T) {
	_, err := Load(writeConfig(t, `
app:
  env: prod
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.bucket")
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	_, err := Load(writeConfig(t, `
storage:
  bucket: b
ingest:
  timezone: Mars/Olympus
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timezone")
}

func TestLoadRejectsWorkersAboveChunkSize(t *testing.T) {
	_, err := Load(writeConfig(t, `
storage:
  bucket: b
ingest:
  chunk_size: 2
  workers: 10
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestFlagNormalized(t *testing.T) {
	u := UniverseConfig{MembershipFlag: "  KOSPI200 "}
	assert.Equal(t, "kospi200", u.Flag())
}
