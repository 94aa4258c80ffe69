package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBEDGE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBEDGE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Scoring ──
	setFloat64(&cfg.Scoring.GraduationWeight, "ARBEDGE_SCORING_GRADUATION_WEIGHT")
	setFloat64(&cfg.Scoring.VolumeWeight, "ARBEDGE_SCORING_VOLUME_WEIGHT")
	setFloat64(&cfg.Scoring.HolderWeight, "ARBEDGE_SCORING_HOLDER_WEIGHT")
	setFloat64(&cfg.Scoring.MomentumWeight, "ARBEDGE_SCORING_MOMENTUM_WEIGHT")
	setFloat64(&cfg.Scoring.StrongExecuteFloor, "ARBEDGE_SCORING_STRONG_EXECUTE_FLOOR")
	setFloat64(&cfg.Scoring.ExecuteFloor, "ARBEDGE_SCORING_EXECUTE_FLOOR")
	setFloat64(&cfg.Scoring.ConsiderFloor, "ARBEDGE_SCORING_CONSIDER_FLOOR")
	setFloat64(&cfg.Scoring.WatchFloor, "ARBEDGE_SCORING_WATCH_FLOOR")

	// ── Lifecycle ──
	setFloat64(&cfg.Lifecycle.ViabilityFloor, "ARBEDGE_LIFECYCLE_VIABILITY_FLOOR")
	setStr(&cfg.Lifecycle.AutoExecuteTier, "ARBEDGE_LIFECYCLE_AUTO_EXECUTE_TIER")
	setDuration(&cfg.Lifecycle.EdgeTTL, "ARBEDGE_LIFECYCLE_EDGE_TTL")
	setDuration(&cfg.Lifecycle.SweepInterval, "ARBEDGE_LIFECYCLE_SWEEP_INTERVAL")
	setDuration(&cfg.Lifecycle.TerminalRetention, "ARBEDGE_LIFECYCLE_TERMINAL_RETENTION")

	// ── Capital ──
	setInt64(&cfg.Capital.CeilingLamports, "ARBEDGE_CAPITAL_CEILING_LAMPORTS")

	// ── Scanner ──
	setDuration(&cfg.Scanner.Interval, "ARBEDGE_SCANNER_INTERVAL")
	setDuration(&cfg.Scanner.CycleTimeout, "ARBEDGE_SCANNER_CYCLE_TIMEOUT")
	setDuration(&cfg.Scanner.DedupTTL, "ARBEDGE_SCANNER_DEDUP_TTL")
	setBool(&cfg.Scanner.AutoStart, "ARBEDGE_SCANNER_AUTO_START")

	// ── Swarm ──
	setInt(&cfg.Swarm.Size, "ARBEDGE_SWARM_SIZE")
	setDuration(&cfg.Swarm.PollInterval, "ARBEDGE_SWARM_POLL_INTERVAL")
	setDuration(&cfg.Swarm.ExecTimeout, "ARBEDGE_SWARM_EXEC_TIMEOUT")
	setDuration(&cfg.Swarm.ClaimFenceTTL, "ARBEDGE_SWARM_CLAIM_FENCE_TTL")
	setInt(&cfg.Swarm.DegradeAfter, "ARBEDGE_SWARM_DEGRADE_AFTER")
	setInt(&cfg.Swarm.UnhealthyAfter, "ARBEDGE_SWARM_UNHEALTHY_AFTER")
	setInt(&cfg.Swarm.RecoverAfter, "ARBEDGE_SWARM_RECOVER_AFTER")

	// ── Strategies ──
	setBool(&cfg.Strategies.CopyTrade.Enabled, "ARBEDGE_STRATEGIES_COPY_TRADE_ENABLED")
	setInt64(&cfg.Strategies.CopyTrade.MinBuyLamports, "ARBEDGE_STRATEGIES_COPY_TRADE_MIN_BUY_LAMPORTS")
	setInt64(&cfg.Strategies.CopyTrade.MirrorSizeLamports, "ARBEDGE_STRATEGIES_COPY_TRADE_MIRROR_SIZE_LAMPORTS")
	setBool(&cfg.Strategies.VolumeHunter.Enabled, "ARBEDGE_STRATEGIES_VOLUME_HUNTER_ENABLED")
	setFloat64(&cfg.Strategies.VolumeHunter.SpikeRatio, "ARBEDGE_STRATEGIES_VOLUME_HUNTER_SPIKE_RATIO")
	setInt(&cfg.Strategies.VolumeHunter.EdgeBps, "ARBEDGE_STRATEGIES_VOLUME_HUNTER_EDGE_BPS")
	setBool(&cfg.Strategies.GraduationSniper.Enabled, "ARBEDGE_STRATEGIES_GRADUATION_SNIPER_ENABLED")
	setFloat64(&cfg.Strategies.GraduationSniper.LowerPct, "ARBEDGE_STRATEGIES_GRADUATION_SNIPER_LOWER_PCT")
	setFloat64(&cfg.Strategies.GraduationSniper.UpperPct, "ARBEDGE_STRATEGIES_GRADUATION_SNIPER_UPPER_PCT")
	setInt(&cfg.Strategies.GraduationSniper.EdgeBps, "ARBEDGE_STRATEGIES_GRADUATION_SNIPER_EDGE_BPS")

	// ── Database ──
	setBool(&cfg.Database.Enabled, "ARBEDGE_DATABASE_ENABLED")
	setStr(&cfg.Database.DSN, "ARBEDGE_DATABASE_DSN")
	setStr(&cfg.Database.Host, "ARBEDGE_DATABASE_HOST")
	setInt(&cfg.Database.Port, "ARBEDGE_DATABASE_PORT")
	setStr(&cfg.Database.Database, "ARBEDGE_DATABASE_DATABASE")
	setStr(&cfg.Database.User, "ARBEDGE_DATABASE_USER")
	setStr(&cfg.Database.Password, "ARBEDGE_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "ARBEDGE_DATABASE_SSL_MODE")
	setInt(&cfg.Database.PoolMaxConns, "ARBEDGE_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "ARBEDGE_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "ARBEDGE_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ARBEDGE_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBEDGE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBEDGE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBEDGE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBEDGE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBEDGE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBEDGE_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "ARBEDGE_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARBEDGE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBEDGE_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBEDGE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBEDGE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBEDGE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARBEDGE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBEDGE_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveInterval, "ARBEDGE_S3_ARCHIVE_INTERVAL")
	setInt(&cfg.S3.RetainDays, "ARBEDGE_S3_RETAIN_DAYS")

	// ── Notify ──
	setBool(&cfg.Notify.Enabled, "ARBEDGE_NOTIFY_ENABLED")
	setStr(&cfg.Notify.DiscordWebhook, "ARBEDGE_NOTIFY_DISCORD_WEBHOOK")
	setStr(&cfg.Notify.TelegramToken, "ARBEDGE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBEDGE_NOTIFY_TELEGRAM_CHAT_ID")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ARBEDGE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBEDGE_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "ARBEDGE_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "ARBEDGE_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "ARBEDGE_SERVER_RATE_WINDOW")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "ARBEDGE_METRICS_ENABLED")
	setStr(&cfg.Metrics.Addr, "ARBEDGE_METRICS_ADDR")

	// ── Top-level ──
	setStr(&cfg.Mode, "ARBEDGE_MODE")
	setStr(&cfg.LogLevel, "ARBEDGE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

// DSNString assembles a PostgreSQL connection string from the discrete
// database fields when an explicit DSN is not configured.
func (d DatabaseConfig) DSNString() string {
	if strings.TrimSpace(d.DSN) != "" {
		return d.DSN
	}
	b := strings.Builder{}
	b.WriteString("postgres://")
	if d.User != "" {
		b.WriteString(d.User)
		if d.Password != "" {
			b.WriteString(":" + d.Password)
		}
		b.WriteString("@")
	}
	b.WriteString(d.Host)
	if d.Port > 0 {
		b.WriteString(":" + strconv.Itoa(d.Port))
	}
	b.WriteString("/" + d.Database)
	if d.SSLMode != "" {
		b.WriteString("?sslmode=" + d.SSLMode)
	}
	return b.String()
}
