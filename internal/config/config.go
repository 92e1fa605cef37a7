package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port            int
	DBDSN           string
	RedisURL        string
	JWTSecret       string
	JWTAccessTTL    time.Duration
	AllowOrigins    []string
	AutoMigrate     bool
	RateLimitPublic RateLimitConfig
	RateLimitAuth   RateLimitConfig
	Ranking         RankingConfig
	Notify          NotifyConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// RankingConfig controla leitura e janela mensal do ranking por cidade.
type RankingConfig struct {
	CacheTTL        time.Duration
	Location        *time.Location
	RefreshInterval time.Duration
}

// NotifyConfig descreve os canais de saída dos eventos de engajamento.
type NotifyConfig struct {
	RedisChannel string
	KafkaBrokers []string
	KafkaTopic   string
	SlackWebhook string
	Timeout      time.Duration
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = getEnv("DB_DSN", "")
	if cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN obrigatório")
	}

	cfg.RedisURL = getEnv("REDIS_URL", "")
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL obrigatório")
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", ""))
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	accessTTL, err := parseDurationEnv("JWT_ACCESS_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.JWTAccessTTL = accessTTL

	cfg.AllowOrigins = splitList(getEnv("ALLOW_ORIGINS", ""))
	cfg.AutoMigrate = parseBool(getEnv("DB_AUTO_MIGRATE", "false"))

	rps, err := parseFloatEnv("RATE_LIMIT_RPS", 10)
	if err != nil {
		return nil, err
	}
	burst, err := parseIntEnv("RATE_LIMIT_BURST", 40)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: rps, Burst: burst / 2}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: rps, Burst: burst}

	cacheTTL, err := parseDurationEnv("RANKING_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.Ranking.CacheTTL = cacheTTL

	loc, err := time.LoadLocation(getEnv("RANKING_TZ", "UTC"))
	if err != nil {
		return nil, errors.New("RANKING_TZ inválido")
	}
	cfg.Ranking.Location = loc

	// recálculo é acionado pelo admin; o loop periódico é opcional
	refresh, err := parseDurationEnv("RANKING_REFRESH_INTERVAL", 0)
	if err != nil {
		return nil, err
	}
	cfg.Ranking.RefreshInterval = refresh

	notifyTimeout, err := parseDurationEnv("NOTIFY_TIMEOUT", 3*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.Notify = NotifyConfig{
		RedisChannel: strings.TrimSpace(getEnv("NOTIFY_REDIS_CHANNEL", "engajamento:eventos")),
		KafkaBrokers: splitList(getEnv("NOTIFY_KAFKA_BROKERS", "")),
		KafkaTopic:   strings.TrimSpace(getEnv("NOTIFY_KAFKA_TOPIC", "engajamento.eventos")),
		SlackWebhook: strings.TrimSpace(getEnv("NOTIFY_SLACK_WEBHOOK", "")),
		Timeout:      notifyTimeout,
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBool(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "sim":
		return true
	}
	return false
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseIntEnv(key string, def int) (int, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return n, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return f, nil
}
