// Package config carrega a configuração do gateway (arquivo YAML, .env e
// variáveis QUOTAGATE_*) e converte a tabela de regras em domain.Rule.
package config

import (
	"time"

	"middleware-gateway/middleware/ratelimit/domain"
)

const EnvPrefix = "QUOTAGATE"

type Config struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Upstream    UpstreamConfig    `mapstructure:"upstream" yaml:"upstream"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Limiter     LimiterConfig     `mapstructure:"limiter" yaml:"limiter"`
	Redis       RedisConfig       `mapstructure:"redis" yaml:"redis"`
	Stats       StatsConfig       `mapstructure:"stats" yaml:"stats"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Admin       AdminConfig       `mapstructure:"admin" yaml:"admin"`
}

type ServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type UpstreamConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type LoggingConfig struct {
	Env    string `mapstructure:"env" yaml:"env"`
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type LimiterConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Backend: memory | redis
	Backend      string            `mapstructure:"backend" yaml:"backend"`
	Retention    time.Duration     `mapstructure:"retention" yaml:"retention"`
	CleanupEvery time.Duration     `mapstructure:"cleanup_every" yaml:"cleanup_every"`
	Shards       int               `mapstructure:"shards" yaml:"shards"`
	Thresholds   domain.Thresholds `mapstructure:"thresholds" yaml:"thresholds"`

	KeyHeader        string `mapstructure:"key_header" yaml:"key_header"`
	TrustXFF         bool   `mapstructure:"trust_xff" yaml:"trust_xff"`
	JWTSecret        string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	AnonymousSubject string `mapstructure:"anonymous_subject" yaml:"anonymous_subject"`
	AddHeaders       bool   `mapstructure:"add_headers" yaml:"add_headers"`

	Rules     []RuleConfig `mapstructure:"rules" yaml:"rules"`
	RulesFile string       `mapstructure:"rules_file" yaml:"rules_file"`
}

// RuleConfig é uma linha da tabela de regras. Window tem precedência sobre WindowMS.
type RuleConfig struct {
	Path     string        `mapstructure:"path" yaml:"path" json:"path"`
	Method   domain.Method `mapstructure:"method" yaml:"method" json:"method"`
	Limit    int           `mapstructure:"limit" yaml:"limit" json:"limit"`
	Window   time.Duration `mapstructure:"window" yaml:"window" json:"window"`
	WindowMS int64         `mapstructure:"window_ms" yaml:"window_ms" json:"window_ms,omitempty"`
}

type RedisConfig struct {
	Addr          string        `mapstructure:"addr" yaml:"addr"`
	Password      string        `mapstructure:"password" yaml:"password"`
	DB            int           `mapstructure:"db" yaml:"db"`
	CounterPrefix string        `mapstructure:"counter_prefix" yaml:"counter_prefix"`
	PingTimeout   time.Duration `mapstructure:"ping_timeout" yaml:"ping_timeout"`
}

type StatsConfig struct {
	// Backend: none | memory | redis | kafka
	Backend       string        `mapstructure:"backend" yaml:"backend"`
	TrackSubjects bool          `mapstructure:"track_subjects" yaml:"track_subjects"`
	Prefix        string        `mapstructure:"prefix" yaml:"prefix"`
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Bucket        string        `mapstructure:"bucket" yaml:"bucket"`
	Kafka         KafkaConfig   `mapstructure:"kafka" yaml:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers" yaml:"brokers"`
	Topic   string   `mapstructure:"topic" yaml:"topic"`
}

type ConcurrencyConfig struct {
	Max            int           `mapstructure:"max" yaml:"max"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout" yaml:"acquire_timeout"`
}

type AdminConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Token em texto puro ou TokenHash (bcrypt). Basta um dos dois.
	Token          string   `mapstructure:"token" yaml:"token"`
	TokenHash      string   `mapstructure:"token_hash" yaml:"token_hash"`
	RPS            float64  `mapstructure:"rps" yaml:"rps"`
	Burst          int      `mapstructure:"burst" yaml:"burst"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	// URL usada pelos comandos status/reset para falar com o gateway.
	URL string `mapstructure:"url" yaml:"url"`
}

// DefaultRules é a tabela de referência usada quando nenhuma regra é configurada.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{Path: "/api/auth/login", Method: domain.MethodPost, Limit: 5, Window: 5 * time.Minute},
		{Path: "/api/auth/register", Method: domain.MethodPost, Limit: 3, Window: 10 * time.Minute},
		{Path: "/api/jobs/search", Method: domain.MethodGet, Limit: 100, Window: time.Hour},
		{Path: "/api/jobs/create", Method: domain.MethodPost, Limit: 10, Window: time.Hour},
		{Path: "/api/messages/send", Method: domain.MethodPost, Limit: 50, Window: time.Hour},
		{Path: "/api/payments/process", Method: domain.MethodPost, Limit: 20, Window: time.Hour},
		{Path: "/api/notifications/send", Method: domain.MethodPost, Limit: 1000, Window: time.Hour},
	}
}
