package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		DSN      string
		Host     string
		Port     string
		User     string
		Password string
		Name     string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	HTTP struct {
		Host string
		Port string
	}

	// Recommend holds the tunables of the suggestion pipeline.
	// Defaults reproduce the reference deployment; every knob can be
	// overridden per environment.
	Recommend struct {
		Scheme            string // "additive" or "blended"
		TopN              int    // batch list length
		InteractiveTopN   int    // on-demand list length
		ScoreFloor        float64
		FollowScanLimit   int // direct follows read per requester
		FollowSample      int // follows sampled for the second hop
		FanoutLimit       int // follows read per sampled user
		FanoutCap         int // friend-of-friend id cap
		LookupBatchSize   int // profile ids per batch lookup
		TagQueryCap       int
		CommunityQueryCap int
		TrendingLimit     int
		SemanticPool      int
	}

	Batch struct {
		PoolSize           int // users processed per run
		WriteBatchSize     int // puts per commit
		SmallUserbaseMax   int // active-user count at or below which the flat bonus applies
		SmallUserbaseBonus float64
	}

	Embedding struct {
		BaseURL string // empty disables the semantic strategy
		APIKey  string
		Model   string
		Timeout time.Duration
	}

	Follow struct {
		RatePerSecond float64 // toggle ops per second per actor
		RateBurst     int
	}
}

func New() *Config {
	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "orbi")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.DSN = os.Getenv("MYSQL_DSN")
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
		cfg.DB.User = getEnvDefault("DB_USER", "root")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "root")
		cfg.DB.Name = getEnvDefault("DB_NAME", "orbi")

		cfg.DB.DSN = fmt.Sprintf(
			"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
			cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
		)
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "127.0.0.1")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")

	// Recommendation pipeline
	cfg.Recommend.Scheme = getEnvDefault("RECOMMEND_SCHEME", "additive")
	cfg.Recommend.TopN = getEnvInt("RECOMMEND_TOP_N", 20)
	cfg.Recommend.InteractiveTopN = getEnvInt("RECOMMEND_INTERACTIVE_TOP_N", 5)
	cfg.Recommend.ScoreFloor = getEnvFloat("RECOMMEND_SCORE_FLOOR", 0)
	cfg.Recommend.FollowScanLimit = getEnvInt("RECOMMEND_FOLLOW_SCAN_LIMIT", 50)
	cfg.Recommend.FollowSample = getEnvInt("RECOMMEND_FOLLOW_SAMPLE", 5)
	cfg.Recommend.FanoutLimit = getEnvInt("RECOMMEND_FANOUT_LIMIT", 10)
	cfg.Recommend.FanoutCap = getEnvInt("RECOMMEND_FANOUT_CAP", 30)
	cfg.Recommend.LookupBatchSize = getEnvInt("RECOMMEND_LOOKUP_BATCH_SIZE", 10)
	cfg.Recommend.TagQueryCap = getEnvInt("RECOMMEND_TAG_QUERY_CAP", 20)
	cfg.Recommend.CommunityQueryCap = getEnvInt("RECOMMEND_COMMUNITY_QUERY_CAP", 20)
	cfg.Recommend.TrendingLimit = getEnvInt("RECOMMEND_TRENDING_LIMIT", 20)
	cfg.Recommend.SemanticPool = getEnvInt("RECOMMEND_SEMANTIC_POOL", 100)

	// Batch job
	cfg.Batch.PoolSize = getEnvInt("BATCH_POOL_SIZE", 200)
	cfg.Batch.WriteBatchSize = getEnvInt("BATCH_WRITE_BATCH_SIZE", 500)
	cfg.Batch.SmallUserbaseMax = getEnvInt("BATCH_SMALL_USERBASE_MAX", 20)
	cfg.Batch.SmallUserbaseBonus = getEnvFloat("BATCH_SMALL_USERBASE_BONUS", 15)

	// Embedding provider (optional)
	cfg.Embedding.BaseURL = getEnvDefault("EMBEDDING_BASE_URL", "")
	cfg.Embedding.APIKey = getEnvDefault("EMBEDDING_API_KEY", "")
	cfg.Embedding.Model = getEnvDefault("EMBEDDING_MODEL", "text-embedding-3-small")
	cfg.Embedding.Timeout = getEnvDuration("EMBEDDING_TIMEOUT", 10*time.Second)

	// Follow toggle
	cfg.Follow.RatePerSecond = getEnvFloat("FOLLOW_RATE_PER_SECOND", 2)
	cfg.Follow.RateBurst = getEnvInt("FOLLOW_RATE_BURST", 2)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
