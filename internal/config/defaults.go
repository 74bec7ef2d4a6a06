package config

import "strings"

const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"

	defaultMasterURL       = "https://new.real.download.dws.co.kr/common/master/kospi_code.mst.zip"
	defaultMembershipFlag  = "kospi50"
	defaultUniverseTimeout = 60

	defaultHantooBaseURL    = "https://openapi.koreainvestment.com:9443"
	defaultHantooAuthPath   = "auth/hantoo.yaml"
	defaultHantooTokenPath  = "auth/hantoo_token.yaml"
	defaultHantooTimeout    = 30
	defaultHantooMaxRecords = 100000

	defaultStoragePrefix = "hantoo-stock-kline-1m"
	defaultAWSAuthPath   = "auth/aws.yaml"
	defaultRunLedgerPath = "data/ingest_runs.db"

	defaultIngestChunkSize    = 50
	defaultIngestWorkers      = 5
	defaultIngestChunkPauseMS = 500
	defaultIngestBackfillDays = 7
	defaultIngestTimezone     = "Asia/Seoul"
	defaultCompletenessWindow = 60
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Universe.applyDefaults(keys)
	c.Hantoo.applyDefaults(keys)
	c.Storage.applyDefaults(keys)
	c.Ingest.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
	)
}

func (u *UniverseConfig) applyDefaults(keys keySet) {
	if u == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("universe.master_url", &u.MasterURL, defaultMasterURL),
		stringFieldDefault("universe.membership_flag", &u.MembershipFlag, defaultMembershipFlag),
		fieldDefault{
			key:   "universe.timeout_seconds",
			need:  func() bool { return u.TimeoutSeconds <= 0 },
			apply: func() { u.TimeoutSeconds = defaultUniverseTimeout },
		},
	)
}

func (h *HantooConfig) applyDefaults(keys keySet) {
	if h == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("hantoo.base_url", &h.BaseURL, defaultHantooBaseURL),
		stringFieldDefault("hantoo.auth_path", &h.AuthPath, defaultHantooAuthPath),
		stringFieldDefault("hantoo.token_path", &h.TokenPath, defaultHantooTokenPath),
		boolFieldDefault("hantoo.watch_token", &h.WatchToken, true),
		fieldDefault{
			key:   "hantoo.timeout_seconds",
			need:  func() bool { return h.TimeoutSeconds <= 0 },
			apply: func() { h.TimeoutSeconds = defaultHantooTimeout },
		},
		fieldDefault{
			key:   "hantoo.max_records",
			need:  func() bool { return h.MaxRecords <= 0 },
			apply: func() { h.MaxRecords = defaultHantooMaxRecords },
		},
	)
}

func (s *StorageConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("storage.prefix", &s.Prefix, defaultStoragePrefix),
		stringFieldDefault("storage.aws_auth_path", &s.AWSAuthPath, defaultAWSAuthPath),
		stringFieldDefault("storage.run_ledger_path", &s.RunLedgerPath, defaultRunLedgerPath),
	)
	s.Prefix = strings.Trim(strings.TrimSpace(s.Prefix), "/")
}

func (i *IngestConfig) applyDefaults(keys keySet) {
	if i == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("ingest.timezone", &i.Timezone, defaultIngestTimezone),
		fieldDefault{
			key:   "ingest.chunk_size",
			need:  func() bool { return i.ChunkSize <= 0 },
			apply: func() { i.ChunkSize = defaultIngestChunkSize },
		},
		fieldDefault{
			key:   "ingest.workers",
			need:  func() bool { return i.Workers <= 0 },
			apply: func() { i.Workers = defaultIngestWorkers },
		},
		fieldDefault{
			key:   "ingest.chunk_pause_ms",
			need:  func() bool { return i.ChunkPauseMillis <= 0 },
			apply: func() { i.ChunkPauseMillis = defaultIngestChunkPauseMS },
		},
		fieldDefault{
			key:   "ingest.backfill_days",
			need:  func() bool { return i.BackfillDays <= 0 },
			apply: func() { i.BackfillDays = defaultIngestBackfillDays },
		},
		fieldDefault{
			key:   "ingest.completeness_window_seconds",
			need:  func() bool { return i.CompletenessWindow <= 0 },
			apply: func() { i.CompletenessWindow = defaultCompletenessWindow },
		},
	)
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
