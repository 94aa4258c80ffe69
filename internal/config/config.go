// Package config defines the top-level configuration for the arbedge engine
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBEDGE_* environment variables.
type Config struct {
	Scoring    ScoringConfig    `toml:"scoring"`
	Lifecycle  LifecycleConfig  `toml:"lifecycle"`
	Capital    CapitalConfig    `toml:"capital"`
	Scanner    ScannerConfig    `toml:"scanner"`
	Swarm      SwarmConfig      `toml:"swarm"`
	Strategies StrategiesConfig `toml:"strategies"`
	Venues     []VenueConfig    `toml:"venues"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Notify     NotifyConfig     `toml:"notify"`
	Server     ServerConfig     `toml:"server"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Executor   ExecutorConfig   `toml:"executor"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// ScoringConfig holds the factor weights and recommendation thresholds used by
// the scoring engine. Weights must sum to 1.0.
type ScoringConfig struct {
	GraduationWeight float64 `toml:"graduation_weight"`
	VolumeWeight     float64 `toml:"volume_weight"`
	HolderWeight     float64 `toml:"holder_weight"`
	MomentumWeight   float64 `toml:"momentum_weight"`

	StrongExecuteFloor float64 `toml:"strong_execute_floor"`
	ExecuteFloor       float64 `toml:"execute_floor"`
	ConsiderFloor      float64 `toml:"consider_floor"`
	WatchFloor         float64 `toml:"watch_floor"`
}

// LifecycleConfig holds edge lifecycle parameters.
type LifecycleConfig struct {
	ViabilityFloor    float64  `toml:"viability_floor"`
	AutoExecuteTier   string   `toml:"auto_execute_tier"`
	EdgeTTL           duration `toml:"edge_ttl"`
	SweepInterval     duration `toml:"sweep_interval"`
	TerminalRetention duration `toml:"terminal_retention"`
}

// CapitalConfig holds the admission-control ceiling in lamports.
type CapitalConfig struct {
	CeilingLamports int64 `toml:"ceiling_lamports"`
}

// ScannerConfig holds scan-loop timing parameters.
type ScannerConfig struct {
	Interval     duration `toml:"interval"`
	CycleTimeout duration `toml:"cycle_timeout"`
	DedupTTL     duration `toml:"dedup_ttl"`
	AutoStart    bool     `toml:"auto_start"`
}

// SwarmConfig holds execution swarm sizing and health thresholds.
type SwarmConfig struct {
	Size           int      `toml:"size"`
	PollInterval   duration `toml:"poll_interval"`
	ExecTimeout    duration `toml:"exec_timeout"`
	ClaimFenceTTL  duration `toml:"claim_fence_ttl"`
	DegradeAfter   int      `toml:"degrade_after"`
	UnhealthyAfter int      `toml:"unhealthy_after"`
	RecoverAfter   int      `toml:"recover_after"`
}

// StrategiesConfig holds per-strategy parameters.
type StrategiesConfig struct {
	CopyTrade        CopyTradeConfig        `toml:"copy_trade"`
	VolumeHunter     VolumeHunterConfig     `toml:"volume_hunter"`
	GraduationSniper GraduationSniperConfig `toml:"graduation_sniper"`
}

// CopyTradeConfig holds config for the copy_trade strategy.
type CopyTradeConfig struct {
	Enabled            bool     `toml:"enabled"`
	MinBuyLamports     int64    `toml:"min_buy_lamports"`
	MirrorSizeLamports int64    `toml:"mirror_size_lamports"`
	EdgeBps            int      `toml:"edge_bps"`
	SignalTTL          duration `toml:"signal_ttl"`
	AutoExecute        bool     `toml:"auto_execute"`
}

// VolumeHunterConfig holds config for the volume_hunter strategy.
type VolumeHunterConfig struct {
	Enabled      bool     `toml:"enabled"`
	SpikeRatio   float64  `toml:"spike_ratio"`
	SizeLamports int64    `toml:"size_lamports"`
	EdgeBps      int      `toml:"edge_bps"`
	SignalTTL    duration `toml:"signal_ttl"`
	AutoExecute  bool     `toml:"auto_execute"`
}

// GraduationSniperConfig holds config for the graduation_sniper strategy.
type GraduationSniperConfig struct {
	Enabled      bool     `toml:"enabled"`
	LowerPct     float64  `toml:"lower_pct"`
	UpperPct     float64  `toml:"upper_pct"`
	SizeLamports int64    `toml:"size_lamports"`
	EdgeBps      int      `toml:"edge_bps"`
	SignalTTL    duration `toml:"signal_ttl"`
	AutoExecute  bool     `toml:"auto_execute"`
}

// VenueConfig describes one market venue feed.
type VenueConfig struct {
	Name      string `toml:"name"`
	Type      string `toml:"type"` // "dex" or "bonding_curve"
	WsURL     string `toml:"ws_url"`
	ApiKey    string `toml:"api_key"`
	// EncryptedKeyPath points at a PBKDF2/AES-GCM envelope written by the
	// keygen mode; when set it takes precedence over ApiKey.
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for trade archival.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`

	// ArchiveInterval paces the trade archival sweep; RetainDays is how
	// long trades stay in the primary store before archival.
	ArchiveInterval duration `toml:"archive_interval"`
	RetainDays      int      `toml:"retain_days"`
}

// NotifyConfig holds operator alert channels. Events lists the lifecycle
// statuses that trigger an alert; empty means all transitions alert.
type NotifyConfig struct {
	Enabled        bool     `toml:"enabled"`
	Events         []string `toml:"events"`
	DiscordWebhook string   `toml:"discord_webhook"`
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
}

// ServerConfig holds the operator HTTP API parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey enables bearer/X-API-Key authentication when non-empty.
	APIKey string `toml:"api_key"`
	// RateLimit caps requests per client IP per RateWindow. Zero disables
	// limiting. Requires Redis.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// MetricsConfig holds the Prometheus scrape listener parameters.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// ExecutorConfig holds paper-execution simulation parameters.
type ExecutorConfig struct {
	BaseSlippageBps   int      `toml:"base_slippage_bps"`
	PerHopSlippageBps int      `toml:"per_hop_slippage_bps"`
	GasCostLamports   int64    `toml:"gas_cost_lamports"`
	Latency           duration `toml:"latency"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Scoring: ScoringConfig{
			GraduationWeight:   0.35,
			VolumeWeight:       0.25,
			HolderWeight:       0.20,
			MomentumWeight:     0.20,
			StrongExecuteFloor: 80,
			ExecuteFloor:       65,
			ConsiderFloor:      45,
			WatchFloor:         25,
		},
		Lifecycle: LifecycleConfig{
			ViabilityFloor:    35.0,
			AutoExecuteTier:   "execute",
			EdgeTTL:           duration{90 * time.Second},
			SweepInterval:     duration{5 * time.Second},
			TerminalRetention: duration{10 * time.Minute},
		},
		Capital: CapitalConfig{
			CeilingLamports: 5_000_000_000,
		},
		Scanner: ScannerConfig{
			Interval:     duration{2 * time.Second},
			CycleTimeout: duration{10 * time.Second},
			DedupTTL:     duration{2 * time.Minute},
			AutoStart:    true,
		},
		Swarm: SwarmConfig{
			Size:           4,
			PollInterval:   duration{500 * time.Millisecond},
			ExecTimeout:    duration{20 * time.Second},
			ClaimFenceTTL:  duration{30 * time.Second},
			DegradeAfter:   2,
			UnhealthyAfter: 4,
			RecoverAfter:   3,
		},
		Strategies: StrategiesConfig{
			CopyTrade: CopyTradeConfig{
				Enabled:            true,
				MinBuyLamports:     500_000_000,
				MirrorSizeLamports: 100_000_000,
				EdgeBps:            80,
				SignalTTL:          duration{90 * time.Second},
				AutoExecute:        false,
			},
			VolumeHunter: VolumeHunterConfig{
				Enabled:      true,
				SpikeRatio:   3.0,
				SizeLamports: 150_000_000,
				EdgeBps:      120,
				SignalTTL:    duration{60 * time.Second},
				AutoExecute:  false,
			},
			GraduationSniper: GraduationSniperConfig{
				Enabled:      true,
				LowerPct:     85,
				UpperPct:     100,
				SizeLamports: 200_000_000,
				EdgeBps:      150,
				SignalTTL:    duration{45 * time.Second},
				AutoExecute:  true,
			},
		},
		Venues: []VenueConfig{},
		Database: DatabaseConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "arbedge",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:         false,
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "arbedge-data",
			UseSSL:          false,
			ForcePathStyle:  true,
			ArchiveInterval: duration{24 * time.Hour},
			RetainDays:      30,
		},
		Notify: NotifyConfig{
			Enabled: false,
			Events:  []string{"executed", "failed"},
		},
		Server: ServerConfig{
			Enabled:    true,
			Port:       8087,
			RateLimit:  120,
			RateWindow: duration{time.Minute},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9109",
		},
		Executor: ExecutorConfig{
			BaseSlippageBps:   12,
			PerHopSlippageBps: 8,
			GasCostLamports:   25_000,
			Latency:           duration{50 * time.Millisecond},
		},
		Mode:     "paper",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"engine": true,
	"scan":   true,
	"paper":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validTiers enumerates the accepted values for Lifecycle.AutoExecuteTier.
var validTiers = map[string]bool{
	"consider":       true,
	"execute":        true,
	"strong_execute": true,
}

// validVenueTypes enumerates the accepted values for VenueConfig.Type.
var validVenueTypes = map[string]bool{
	"dex":           true,
	"bonding_curve": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: engine, scan, paper)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Scoring — weights must be a convex combination, thresholds descending.
	sum := c.Scoring.GraduationWeight + c.Scoring.VolumeWeight + c.Scoring.HolderWeight + c.Scoring.MomentumWeight
	if sum < 0.999 || sum > 1.001 {
		errs = append(errs, fmt.Sprintf("scoring: weights must sum to 1.0, got %.4f", sum))
	}
	if c.Scoring.GraduationWeight < 0 || c.Scoring.VolumeWeight < 0 || c.Scoring.HolderWeight < 0 || c.Scoring.MomentumWeight < 0 {
		errs = append(errs, "scoring: weights must be non-negative")
	}
	if !(c.Scoring.StrongExecuteFloor > c.Scoring.ExecuteFloor &&
		c.Scoring.ExecuteFloor > c.Scoring.ConsiderFloor &&
		c.Scoring.ConsiderFloor > c.Scoring.WatchFloor &&
		c.Scoring.WatchFloor > 0) {
		errs = append(errs, "scoring: recommendation floors must be strictly descending and positive")
	}

	// Lifecycle
	if !validTiers[strings.ToLower(c.Lifecycle.AutoExecuteTier)] {
		errs = append(errs, fmt.Sprintf("lifecycle: unknown auto_execute_tier %q (valid: consider, execute, strong_execute)", c.Lifecycle.AutoExecuteTier))
	}
	if c.Lifecycle.ViabilityFloor < 0 || c.Lifecycle.ViabilityFloor > 100 {
		errs = append(errs, "lifecycle: viability_floor must be within [0, 100]")
	}
	if c.Lifecycle.EdgeTTL.Duration <= 0 {
		errs = append(errs, "lifecycle: edge_ttl must be > 0")
	}
	if c.Lifecycle.SweepInterval.Duration <= 0 {
		errs = append(errs, "lifecycle: sweep_interval must be > 0")
	}
	if c.Lifecycle.TerminalRetention.Duration <= 0 {
		errs = append(errs, "lifecycle: terminal_retention must be > 0")
	}

	// Capital
	if c.Capital.CeilingLamports <= 0 {
		errs = append(errs, "capital: ceiling_lamports must be > 0")
	}

	// Scanner
	if c.Scanner.Interval.Duration <= 0 {
		errs = append(errs, "scanner: interval must be > 0")
	}
	if c.Scanner.CycleTimeout.Duration <= 0 {
		errs = append(errs, "scanner: cycle_timeout must be > 0")
	}

	// Swarm
	if c.Swarm.Size < 1 {
		errs = append(errs, "swarm: size must be >= 1")
	}
	if c.Swarm.DegradeAfter < 1 || c.Swarm.UnhealthyAfter <= c.Swarm.DegradeAfter {
		errs = append(errs, "swarm: require 1 <= degrade_after < unhealthy_after")
	}
	if c.Swarm.RecoverAfter < 1 {
		errs = append(errs, "swarm: recover_after must be >= 1")
	}

	// Venues
	for i, v := range c.Venues {
		if v.Name == "" {
			errs = append(errs, fmt.Sprintf("venues[%d]: name must not be empty", i))
		}
		if !validVenueTypes[strings.ToLower(v.Type)] {
			errs = append(errs, fmt.Sprintf("venues[%d]: unknown type %q (valid: dex, bonding_curve)", i, v.Type))
		}
		if v.WsURL == "" {
			errs = append(errs, fmt.Sprintf("venues[%d]: ws_url must not be empty", i))
		}
		if v.EncryptedKeyPath != "" && v.KeyPassword == "" {
			errs = append(errs, fmt.Sprintf("venues[%d]: key_password is required when encrypted_key_path is set", i))
		}
	}
	if strings.ToLower(c.Mode) != "paper" && len(c.Venues) == 0 {
		errs = append(errs, "venues: at least one venue is required for mode "+c.Mode)
	}

	// Database
	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			if c.Database.Host == "" {
				errs = append(errs, "database: host must not be empty (or set database.dsn)")
			}
			if c.Database.Port <= 0 || c.Database.Port > 65535 {
				errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
			}
			if c.Database.Database == "" {
				errs = append(errs, "database: database must not be empty")
			}
		}
		if c.Database.PoolMaxConns < 1 {
			errs = append(errs, "database: pool_max_conns must be >= 1")
		}
		if c.Database.PoolMinConns < 0 || c.Database.PoolMinConns > c.Database.PoolMaxConns {
			errs = append(errs, "database: pool_min_conns must be within [0, pool_max_conns]")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.RetainDays <= 0 {
			errs = append(errs, "s3: retain_days must be positive")
		}
	}

	// Notify
	if c.Notify.Enabled {
		hasTelegram := c.Notify.TelegramToken != "" && c.Notify.TelegramChatID != ""
		if c.Notify.DiscordWebhook == "" && !hasTelegram {
			errs = append(errs, "notify: at least one channel must be configured when enabled")
		}
		if !c.Redis.Enabled {
			errs = append(errs, "notify: requires redis for the event bus")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server: port must be in 1..65535")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be positive when rate_limit is set")
		}
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics: addr must not be empty when enabled")
	}

	// Executor
	if c.Executor.BaseSlippageBps < 0 || c.Executor.PerHopSlippageBps < 0 {
		errs = append(errs, "executor: slippage bps must be non-negative")
	}
	if c.Executor.GasCostLamports < 0 {
		errs = append(errs, "executor: gas_cost_lamports must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
