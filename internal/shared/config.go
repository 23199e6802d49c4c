package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv             string
	MetricsAddr        string
	RedisAddr          string
	RedisDB            int
	RedisPass          string
	OntologyPath       string
	TopicModelPath     string
	SentimentModelPath string
	Workers            int
	ReviewTimeout      time.Duration
	InferenceRPS       int // 0 disables inference throttling
	CacheTTL           time.Duration
	MinClauseTokens    int
}

func Load() Config {
	// .env is a developer convenience; deployments set the environment directly.
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:             env("APP_ENV", "prod"),
		MetricsAddr:        env("METRICS_ADDR", ""),
		RedisAddr:          env("REDIS_ADDR", ""),
		RedisPass:          env("REDIS_PASSWORD", ""),
		RedisDB:            atoi("REDIS_DB", 0),
		OntologyPath:       env("ONTOLOGY_PATH", "configs/ontology.json"),
		TopicModelPath:     env("TOPIC_MODEL_PATH", "models/topics.gob"),
		SentimentModelPath: env("SENTIMENT_MODEL_PATH", "models/sentiment.gob"),
		Workers:            atoi("PREDICT_WORKERS", 8),
		ReviewTimeout:      time.Duration(atoi("REVIEW_TIMEOUT_MS", 5000)) * time.Millisecond,
		InferenceRPS:       atoi("INFERENCE_RPS", 0),
		CacheTTL:           time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		MinClauseTokens:    atoi("MIN_CLAUSE_TOKENS", 2),
	}
	if c.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR is empty, prediction cache disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
