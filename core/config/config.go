package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"group-scheduler/core/constants"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	User                   string `mapstructure:"user"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Driver    string `mapstructure:"driver"` // memory | redis
	KeyPrefix string `mapstructure:"key_prefix"`
}

type RealtimeConfig struct {
	Driver  string `mapstructure:"driver"` // memory | postgres
	Channel string `mapstructure:"channel"`
	Buffer  int    `mapstructure:"buffer"`
}

type QueueConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Name        string `mapstructure:"name"`
	Concurrency int    `mapstructure:"concurrency"`
	MaxRetry    int    `mapstructure:"max_retry"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type SchedulerConfig struct {
	StepMinutes            int           `mapstructure:"step_minutes"`
	BlockMinutes           int           `mapstructure:"block_minutes"`
	OverlapPolicy          string        `mapstructure:"overlap_policy"` // any | contained
	WindowPolicy           string        `mapstructure:"window_policy"`  // start | contained
	ReferenceOffsetMinutes int           `mapstructure:"reference_offset_minutes"`
	FetchTimeout           time.Duration `mapstructure:"fetch_timeout"`
	PersistTimeout         time.Duration `mapstructure:"persist_timeout"`
}

var (
	mu       sync.RWMutex
	instance *Config
)

// Load reads .env, the optional YAML file at path and SCHEDULER_* environment
// overrides, validates the result and stores it as the process config.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SCHEDULER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mu.Lock()
	instance = &cfg
	mu.Unlock()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 7070)
	v.SetDefault("server.shutdown_timeout", constants.DefaultShutdownTime)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "scheduler")
	v.SetDefault("database.sslmode", constants.DatabaseSSLMode)
	v.SetDefault("database.max_open_conns", constants.DatabaseMaxOpenConns)
	v.SetDefault("database.max_idle_conns", constants.DatabaseMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime_minutes", constants.DatabaseConnMaxLifetime)
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.key_prefix", "scheduler:")

	v.SetDefault("realtime.driver", "memory")
	v.SetDefault("realtime.channel", "scheduler_inserts")
	v.SetDefault("realtime.buffer", 16)

	v.SetDefault("queue.enabled", false)
	v.SetDefault("queue.name", constants.QueueScheduler)
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.max_retry", 3)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("scheduler.step_minutes", constants.DefaultStepMinutes)
	v.SetDefault("scheduler.block_minutes", constants.DefaultBlockMinutes)
	v.SetDefault("scheduler.overlap_policy", "any")
	v.SetDefault("scheduler.window_policy", "start")
	v.SetDefault("scheduler.reference_offset_minutes", 0)
	v.SetDefault("scheduler.fetch_timeout", constants.DefaultFetchTimeout)
	v.SetDefault("scheduler.persist_timeout", constants.DefaultPersistTimeout)
}

func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	switch c.Cache.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache.driver %q", c.Cache.Driver)
	}
	switch c.Realtime.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown realtime.driver %q", c.Realtime.Driver)
	}
	switch c.Scheduler.OverlapPolicy {
	case "any", "contained":
	default:
		return fmt.Errorf("unknown scheduler.overlap_policy %q", c.Scheduler.OverlapPolicy)
	}
	switch c.Scheduler.WindowPolicy {
	case "start", "contained":
	default:
		return fmt.Errorf("unknown scheduler.window_policy %q", c.Scheduler.WindowPolicy)
	}
	if c.Scheduler.StepMinutes <= 0 || c.Scheduler.BlockMinutes <= 0 {
		return fmt.Errorf("scheduler.step_minutes and scheduler.block_minutes must be positive")
	}
	return nil
}

func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// GetSafe returns the config and whether Load has completed.
func GetSafe() (*Config, bool) {
	mu.RLock()
	defer mu.RUnlock()
	return instance, instance != nil
}
