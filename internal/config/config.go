package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Normalizer NormalizerConfig
	Deck       DeckConfig
	Redis      RedisConfig
	Events     EventsConfig
	Storage    StorageConfig
	Auth       AuthConfig
	Metrics    MetricsConfig
	Session    SessionConfig
}

type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

type LoggerConfig struct {
	Env   string
	Level string
	// FilePath enables a rotating JSON log file next to stdout.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NormalizerConfig bounds uploaded images.
type NormalizerConfig struct {
	MaxUploadBytes       int64
	ResizeThresholdBytes int64
	MaxWidth             int
	MaxHeight            int
	Quality              float64
	MaxPixels            int64
	Workers              int
}

type DeckConfig struct {
	Dir string
}

type RedisConfig struct {
	Address      string `yaml:"address"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	StreamMaxLen int64  `yaml:"stream_max_len"`
}

type EventsConfig struct {
	KafkaBrokers []string
	Topic        string
	// MemoryBuffer keeps the last N responses in process for inspection.
	// Zero disables the buffer.
	MemoryBuffer int
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// SessionConfig bounds how long an untouched mounted scope is kept.
type SessionConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

const envPrefix = "SLIDE_CAPTURE"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "20s")
	v.SetDefault("server.write_timeout", "20s")
	v.SetDefault("server.body_limit", 16*1024*1024)

	v.SetDefault("logger.env", "development")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 30)
	v.SetDefault("logger.compress", true)

	v.SetDefault("normalizer.max_upload_bytes", 15*1024*1024)
	v.SetDefault("normalizer.resize_threshold_bytes", 1024*1024)
	v.SetDefault("normalizer.max_width", 1024)
	v.SetDefault("normalizer.max_height", 1024)
	v.SetDefault("normalizer.quality", 0.8)
	v.SetDefault("normalizer.max_pixels", 50_000_000)
	v.SetDefault("normalizer.workers", 4)

	v.SetDefault("deck.dir", "./configs/decks")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream_max_len", 10000)

	v.SetDefault("events.topic", "interaction-responses")
	v.SetDefault("events.memory_buffer", 0)

	v.SetDefault("storage.bucket", "interaction-uploads")
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("auth.issuer", "slide-capture")

	v.SetDefault("session.idle_ttl", "2h")
	v.SetDefault("session.sweep_interval", "1m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "slide_capture")
}

// LoadConfig reads config.yaml from the usual locations, then applies
// environment overrides. A missing file is not an error; defaults apply.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.AddConfigPath(path)
	}
	if os.Getenv("ENV") == "test" {
		v.AddConfigPath("../../configs")
		v.AddConfigPath("../../")
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	return load(v)
}

// LoadConfigFile reads a specific file.
func LoadConfigFile(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if configFile := v.ConfigFileUsed(); configFile != "" {
		absPath, _ := filepath.Abs(configFile)
		fmt.Printf("Using config file: %s\n", absPath)
	}

	config := &Config{
		Server: ServerConfig{
			Port:         v.GetInt("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			BodyLimit:    v.GetInt("server.body_limit"),
		},
		Logger: LoggerConfig{
			Env:        v.GetString("logger.env"),
			Level:      v.GetString("logger.level"),
			FilePath:   v.GetString("logger.file_path"),
			MaxSizeMB:  v.GetInt("logger.max_size_mb"),
			MaxBackups: v.GetInt("logger.max_backups"),
			MaxAgeDays: v.GetInt("logger.max_age_days"),
			Compress:   v.GetBool("logger.compress"),
		},
		Normalizer: NormalizerConfig{
			MaxUploadBytes:       v.GetInt64("normalizer.max_upload_bytes"),
			ResizeThresholdBytes: v.GetInt64("normalizer.resize_threshold_bytes"),
			MaxWidth:             v.GetInt("normalizer.max_width"),
			MaxHeight:            v.GetInt("normalizer.max_height"),
			Quality:              v.GetFloat64("normalizer.quality"),
			MaxPixels:            v.GetInt64("normalizer.max_pixels"),
			Workers:              v.GetInt("normalizer.workers"),
		},
		Deck: DeckConfig{
			Dir: v.GetString("deck.dir"),
		},
		Redis: RedisConfig{
			Address:      v.GetString("redis.address"),
			Password:     v.GetString("redis.password"),
			DB:           v.GetInt("redis.db"),
			StreamMaxLen: v.GetInt64("redis.stream_max_len"),
		},
		Events: EventsConfig{
			KafkaBrokers: v.GetStringSlice("events.kafka_brokers"),
			Topic:        v.GetString("events.topic"),
			MemoryBuffer: v.GetInt("events.memory_buffer"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("storage.endpoint"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			Bucket:    v.GetString("storage.bucket"),
			Region:    v.GetString("storage.region"),
			UseSSL:    v.GetBool("storage.use_ssl"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
		},
		Session: SessionConfig{
			IdleTTL:       v.GetDuration("session.idle_ttl"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
		},
		Metrics: MetricsConfig{
			Enabled:   v.GetBool("metrics.enabled"),
			Namespace: v.GetString("metrics.namespace"),
		},
	}

	// Override with conventional environment variables if set
	if env := os.Getenv("ENV"); env == "production" {
		config.Logger.Env = env
	}
	if redisAddress := os.Getenv("REDIS_ADDRESS"); redisAddress != "" {
		config.Redis.Address = redisAddress
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.Redis.Password = redisPassword
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		config.Events.KafkaBrokers = strings.Split(brokers, ",")
	}
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		config.Storage.Endpoint = endpoint
	}
	if accessKey := os.Getenv("MINIO_ACCESS_KEY"); accessKey != "" {
		config.Storage.AccessKey = accessKey
	}
	if secretKey := os.Getenv("MINIO_SECRET_KEY"); secretKey != "" {
		config.Storage.SecretKey = secretKey
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	return config, nil
}
