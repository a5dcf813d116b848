package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"middleware-gateway/middleware/ratelimit/domain"
)

// Load lê, em ordem de precedência crescente: defaults, arquivo de config,
// .env e variáveis QUOTAGATE_* (ex: QUOTAGATE_LIMITER_BACKEND=redis).
// path vazio procura quotagate.yaml em . e ./config, e segue sem arquivo se não achar.
func Load(path string) (*Config, error) {
	// .env é opcional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("quotagate")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Limiter.RulesFile != "" {
		rules, err := LoadRulesFile(cfg.Limiter.RulesFile)
		if err != nil {
			return nil, err
		}
		cfg.Limiter.Rules = rules
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		methodHook(),
	)
}

// methodHook normaliza "post" -> domain.MethodPost.
func methodHook() mapstructure.DecodeHookFuncType {
	methodType := reflect.TypeOf(domain.Method(""))
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if to != methodType || from.Kind() != reflect.String {
			return data, nil
		}
		return domain.ParseMethod(reflect.ValueOf(data).String())
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", "10s")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "90s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("upstream.url", "")

	v.SetDefault("logging.env", "development")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("limiter.enabled", true)
	v.SetDefault("limiter.backend", "memory")
	v.SetDefault("limiter.retention", "15m")
	v.SetDefault("limiter.cleanup_every", "2m")
	v.SetDefault("limiter.shards", 32)
	v.SetDefault("limiter.thresholds.warning", domain.DefaultThresholds.Warning)
	v.SetDefault("limiter.thresholds.critical", domain.DefaultThresholds.Critical)
	v.SetDefault("limiter.key_header", "X-Api-Key")
	v.SetDefault("limiter.trust_xff", false)
	v.SetDefault("limiter.jwt_secret", "")
	v.SetDefault("limiter.anonymous_subject", "")
	v.SetDefault("limiter.add_headers", true)
	v.SetDefault("limiter.rules_file", "")
	v.SetDefault("limiter.rules", defaultRulesMap())

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.counter_prefix", "ratelimit:counter")
	v.SetDefault("redis.ping_timeout", "2s")

	v.SetDefault("stats.backend", "memory")
	v.SetDefault("stats.track_subjects", false)
	v.SetDefault("stats.prefix", "ratelimit:stats")
	v.SetDefault("stats.ttl", "24h")
	v.SetDefault("stats.bucket", "")
	v.SetDefault("stats.kafka.brokers", []string{})
	v.SetDefault("stats.kafka.topic", "ratelimit.decisions")

	v.SetDefault("concurrency.max", 0)
	v.SetDefault("concurrency.acquire_timeout", "0s")

	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.token", "")
	v.SetDefault("admin.token_hash", "")
	v.SetDefault("admin.rps", 5.0)
	v.SetDefault("admin.burst", 10)
	v.SetDefault("admin.allowed_origins", []string{"*"})
	v.SetDefault("admin.url", "http://localhost:8080")
}

func defaultRulesMap() []map[string]any {
	rules := DefaultRules()
	out := make([]map[string]any, 0, len(rules))
	for _, r := range rules {
		out = append(out, map[string]any{
			"path":   r.Path,
			"method": string(r.Method),
			"limit":  r.Limit,
			"window": r.Window.String(),
		})
	}
	return out
}

type rulesFile struct {
	Rules []RuleConfig `yaml:"rules"`
}

// LoadRulesFile lê uma tabela de regras YAML:
//
//	rules:
//	  - path: /api/auth/login
//	    method: POST
//	    limit: 5
//	    window: 5m
func LoadRulesFile(path string) ([]RuleConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	for i := range f.Rules {
		m, err := domain.ParseMethod(string(f.Rules[i].Method))
		if err != nil {
			return nil, fmt.Errorf("rules file %s, rule %d: %w", path, i, err)
		}
		f.Rules[i].Method = m
	}
	return f.Rules, nil
}

// Validate checa a config inteira; qualquer regra inválida é fatal.
func (c *Config) Validate() error {
	switch c.Limiter.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("limiter.backend must be memory or redis, got %q", c.Limiter.Backend)
	}
	if err := c.Limiter.Thresholds.Validate(); err != nil {
		return fmt.Errorf("limiter.thresholds: %w", err)
	}
	if _, err := c.BuildRuleSet(); err != nil {
		return err
	}

	switch c.Stats.Backend {
	case "", "none", "memory", "redis":
	case "kafka":
		if len(c.Stats.Kafka.Brokers) == 0 || c.Stats.Kafka.Topic == "" {
			return errors.New("stats.kafka.brokers and stats.kafka.topic are required for the kafka stats backend")
		}
	default:
		return fmt.Errorf("stats.backend must be none, memory, redis or kafka, got %q", c.Stats.Backend)
	}

	if c.Upstream.URL != "" {
		u, err := url.Parse(c.Upstream.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("upstream.url is not an absolute url: %q", c.Upstream.URL)
		}
	}

	if c.Admin.Enabled && c.Admin.Token == "" && c.Admin.TokenHash == "" {
		return errors.New("admin.token or admin.token_hash is required when admin.enabled is true")
	}
	if c.Concurrency.Max < 0 {
		return fmt.Errorf("concurrency.max must be >= 0, got %d", c.Concurrency.Max)
	}
	return nil
}

// BuildRuleSet converte Limiter.Rules em um domain.RuleSet.
func (c *Config) BuildRuleSet() (*domain.RuleSet, error) {
	rules := make([]*domain.Rule, 0, len(c.Limiter.Rules))
	for i, rc := range c.Limiter.Rules {
		r, err := rc.Build()
		if err != nil {
			return nil, fmt.Errorf("limiter.rules[%d]: %w", i, err)
		}
		rules = append(rules, r)
	}
	rs, err := domain.NewRuleSet(rules...)
	if err != nil {
		return nil, fmt.Errorf("limiter.rules: %w", err)
	}
	return rs, nil
}

func (rc RuleConfig) Build() (*domain.Rule, error) {
	if rc.Window == 0 && rc.WindowMS != 0 {
		return domain.NewRuleMS(rc.Path, rc.Method, rc.Limit, rc.WindowMS)
	}
	return domain.NewRule(rc.Path, rc.Method, rc.Limit, rc.Window)
}
