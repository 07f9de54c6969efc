package config

import (
	"SOS911/pkg/logger"
	"SOS911/pkg/util"
	"log"
	"os"
	"time"
)

// config/config.go
type Config struct {
	Addr              string `env:"ADDR"`
	Mode              string `env:"MODE"`
	APIBaseURL        string `env:"API_BASE_URL"`
	SocketURL         string `env:"SOCKET_URL"`
	RequestTimeoutSec int    `env:"REQUEST_TIMEOUT_SEC"`
	QueueDriver       string `env:"QUEUE_DRIVER"`
	QueueDSN          string `env:"QUEUE_DSN"`
	SyncIntervalSec   int    `env:"SYNC_INTERVAL_SEC"`
	TriggerRate       string `env:"TRIGGER_RATE"`
	CacheType         string `env:"CACHE_TYPE"`
	RedisAddr         string `env:"REDIS_ADDR"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB"`
	ChannelRetries    int    `env:"CHANNEL_RETRIES"`
	FeedbackDriver    string `env:"FEEDBACK_DRIVER"`
	Log               logger.LogConfig
}

var GlobalConfig *Config

func Load() error {
	// 1. 根据环境加载 .env 文件
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development" // 默认使用开发环境
	}
	err := util.LoadEnv(env)
	if err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	// 2. 加载全局配置
	GlobalConfig = &Config{
		Addr:              util.GetEnvDefault("ADDR", ":8911"),
		Mode:              util.GetEnvDefault("MODE", "debug"),
		APIBaseURL:        util.GetEnv("API_BASE_URL"),
		SocketURL:         util.GetEnv("SOCKET_URL"),
		RequestTimeoutSec: int(util.GetIntEnv("REQUEST_TIMEOUT_SEC")),
		QueueDriver:       util.GetEnvDefault("QUEUE_DRIVER", "sqlite"),
		QueueDSN:          util.GetEnv("QUEUE_DSN"),
		SyncIntervalSec:   int(util.GetIntEnv("SYNC_INTERVAL_SEC")),
		TriggerRate:       util.GetEnvDefault("TRIGGER_RATE", "10-M"),
		CacheType:         util.GetEnvDefault("CACHE_TYPE", "gocache"),
		RedisAddr:         util.GetEnv("REDIS_ADDR"),
		RedisPassword:     util.GetEnv("REDIS_PASSWORD"),
		RedisDB:           int(util.GetIntEnv("REDIS_DB")),
		ChannelRetries:    int(util.GetIntEnv("CHANNEL_RETRIES")),
		FeedbackDriver:    util.GetEnvDefault("FEEDBACK_DRIVER", "null"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
	}
	return nil
}

// RequestTimeout 后端 HTTP 请求超时，默认10秒
func (c *Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// SyncInterval 离线队列周期性同步间隔，默认30秒
func (c *Config) SyncInterval() time.Duration {
	if c.SyncIntervalSec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.SyncIntervalSec) * time.Second
}
