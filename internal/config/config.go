package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Ghost-ify/Namite/internal/rules"
)

// Config is shared by both binaries. Every policy knob the pipeline honors is
// an environment variable with a sane default; only the Postgres DSN is
// required.
type Config struct {
	AppEnv        string `env:"APP_ENV" envDefault:"production"`
	APIAddr       string `env:"API_ADDR" envDefault:":8080"`
	PostgresDSN   string `env:"POSTGRES_DSN,notEmpty"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	RobloxAPIURL string        `env:"ROBLOX_API_URL"`
	CheckTimeout time.Duration `env:"CHECK_TIMEOUT" envDefault:"10s"`

	CheckInterval      time.Duration `env:"CHECK_INTERVAL" envDefault:"60s"`
	CheckWorkers       int           `env:"CHECK_WORKERS" envDefault:"5"`
	CandidatesPerCycle int           `env:"CANDIDATES_PER_CYCLE" envDefault:"10"`
	MinLength          int           `env:"MIN_LENGTH" envDefault:"3"`
	MaxLength          int           `env:"MAX_LENGTH" envDefault:"6"`

	CooldownWindow   time.Duration `env:"COOLDOWN_WINDOW" envDefault:"72h"`
	CooldownCacheTTL time.Duration `env:"COOLDOWN_CACHE_TTL" envDefault:"5m"`
	DBMaxConns       int32         `env:"DB_MAX_CONNS" envDefault:"4"`
	DBQueryTimeout   time.Duration `env:"DB_QUERY_TIMEOUT" envDefault:"3s"`

	RateLimitRetries  int           `env:"RATE_LIMIT_RETRIES" envDefault:"3"`
	TransientRetries  int           `env:"TRANSIENT_RETRIES" envDefault:"2"`
	TransientDelay    time.Duration `env:"TRANSIENT_RETRY_DELAY" envDefault:"2s"`
	BackoffBase       time.Duration `env:"BACKOFF_BASE" envDefault:"2s"`
	BackoffMax        time.Duration `env:"BACKOFF_MAX" envDefault:"120s"`
	BackoffMaxLevel   int           `env:"BACKOFF_MAX_LEVEL" envDefault:"8"`
	BackoffDecayAfter int           `env:"BACKOFF_DECAY_AFTER" envDefault:"20"`
	RequeueDelay      time.Duration `env:"REQUEUE_DELAY" envDefault:"15m"`

	BatchMaxSize       int           `env:"BATCH_MAX_SIZE" envDefault:"10"`
	BatchMaxAge        time.Duration `env:"BATCH_MAX_AGE" envDefault:"5m"`
	HighValueMaxLength int           `env:"HIGH_VALUE_MAX_LENGTH" envDefault:"4"`

	NotifySink    string `env:"NOTIFY_SINK" envDefault:"redis"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
}

func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, err
	}
	c.clamp()
	return c, nil
}

const minInterval = 10 * time.Second

// clamp floors values that would break the pipeline or hammer the platform.
func (c *Config) clamp() {
	if c.CheckInterval < minInterval {
		c.CheckInterval = minInterval
	}
	if c.CheckWorkers < 1 {
		c.CheckWorkers = 1
	}
	if c.CandidatesPerCycle < 1 {
		c.CandidatesPerCycle = 1
	}
	if c.MinLength < rules.MinLength {
		c.MinLength = rules.MinLength
	}
	if c.MaxLength > rules.MaxLength {
		c.MaxLength = rules.MaxLength
	}
	if c.MaxLength < c.MinLength {
		c.MaxLength = c.MinLength
	}
	if c.CooldownWindow < time.Hour {
		c.CooldownWindow = time.Hour
	}
	if c.DBMaxConns < 1 {
		c.DBMaxConns = 1
	}
	if c.BatchMaxSize < 1 {
		c.BatchMaxSize = 1
	}
}
