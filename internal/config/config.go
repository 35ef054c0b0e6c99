package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Provider  ProviderConfig  `mapstructure:"provider"`
	Stream    StreamConfig    `mapstructure:"stream"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Environment string `mapstructure:"environment"`
	Port        string `mapstructure:"port"`
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig controls the delivery worker. Interval = 0 disables the
// built-in poll loop (external cron drives /v1/cron/run instead).
// ReclaimAfter = 0 disables the stale-sending sweeper.
type WorkerConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	Interval        time.Duration `mapstructure:"interval"`
	SendTimeout     time.Duration `mapstructure:"send_timeout"`
	ReclaimAfter    time.Duration `mapstructure:"reclaim_after"`
	ReclaimInterval time.Duration `mapstructure:"reclaim_interval"`
}

// AuthConfig holds the two shared secrets: CronSecret guards the batch
// trigger, AdminToken guards the operator surface.
type AuthConfig struct {
	CronSecret string `mapstructure:"cron_secret"`
	AdminToken string `mapstructure:"admin_token"`
}

type ProviderConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	From    string        `mapstructure:"from"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StreamConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	EventBufferSize   int           `mapstructure:"event_buffer_size"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("SHELTERMAIL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", ":8080")
	viper.SetDefault("worker.batch_size", 50)
	viper.SetDefault("worker.send_timeout", 10*time.Second)
	viper.SetDefault("worker.reclaim_after", 10*time.Minute)
	viper.SetDefault("worker.reclaim_interval", time.Minute)
	viper.SetDefault("provider.timeout", 15*time.Second)
	viper.SetDefault("stream.heartbeat_interval", 15*time.Second)
	viper.SetDefault("stream.event_buffer_size", 1000)
	viper.SetDefault("ratelimit.requests_per_second", 20)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}
