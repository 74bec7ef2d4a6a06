package config

import "strings"

// Config is the top-level configuration for the ingestion pipeline.
type Config struct {
	App      AppConfig      `toml:"app"`
	Universe UniverseConfig `toml:"universe"`
	Hantoo   HantooConfig   `toml:"hantoo"`
	Storage  StorageConfig  `toml:"storage"`
	Ingest   IngestConfig   `toml:"ingest"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

// UniverseConfig controls the exchange master file download.
type UniverseConfig struct {
	MasterURL      string `toml:"master_url"`
	MembershipFlag string `toml:"membership_flag"` // e.g. "kospi50", "kospi100", "kospi200"
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// HantooConfig describes access to the broker's REST API. Token issuance is
// handled outside this process; we only read the token file it maintains.
type HantooConfig struct {
	BaseURL        string `toml:"base_url"`
	AuthPath       string `toml:"auth_path"`  // yaml with my_app / my_sec
	TokenPath      string `toml:"token_path"` // yaml maintained by the auth sidecar
	WatchToken     bool   `toml:"watch_token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRecords     int    `toml:"max_records"` // pagination safety cap
}

// StorageConfig describes the S3 destination and the local run ledger.
type StorageConfig struct {
	Bucket        string `toml:"bucket"`
	Prefix        string `toml:"prefix"`
	AWSAuthPath   string `toml:"aws_auth_path"` // yaml with region / access_key_id / secret_access_key
	DayBatch      bool   `toml:"day_batch"`
	RunLedgerPath string `toml:"run_ledger_path"`
}

type IngestConfig struct {
	ChunkSize          int    `toml:"chunk_size"`
	Workers            int    `toml:"workers"`
	ChunkPauseMillis   int    `toml:"chunk_pause_ms"`
	BackfillDays       int    `toml:"backfill_days"` // range when no watermark exists yet
	Timezone           string `toml:"timezone"`
	CompletenessWindow int    `toml:"completeness_window_seconds"`
}

func (u UniverseConfig) Flag() string {
	return strings.ToLower(strings.TrimSpace(u.MembershipFlag))
}

// keySet tracks which config paths were explicitly present in the file, so
// defaults do not clobber deliberate zero values.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes one field's defaulting rule.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
