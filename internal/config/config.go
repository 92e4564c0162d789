package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel  string    `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	Port      string    `yaml:"port" env:"PORT" env-default:"3000"`
	HTTPPort  string    `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Redis     Redis     `yaml:"redis"`
	WebSocket WebSocket `yaml:"websocket"`
	Room      Room      `yaml:"room"`
}

// Redis holds the optional snapshot mirror connection.
type Redis struct {
	Enabled bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host    string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port    string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Timeout time.Duration `yaml:"timeout" env:"REDIS_TIMEOUT" env-default:"2s"`
	TTL     time.Duration `yaml:"ttl" env:"REDIS_TTL" env-default:"24h"`
}

type WebSocket struct {
	SendBuffer     int      `yaml:"send-buffer" env:"WS_SEND_BUFFER" env-default:"256"`
	ReadLimit      int64    `yaml:"read-limit" env:"WS_READ_LIMIT" env-default:"1048576"`
	AllowedOrigins []string `yaml:"allowed-origins" env:"WS_ALLOWED_ORIGINS" env-separator:","`
	// StaticDir holds the browser client, served next to /ws when set.
	StaticDir string `yaml:"static-dir" env:"STATIC_DIR"`
}

type Room struct {
	CodeAttempts int `yaml:"code-attempts" env:"ROOM_CODE_ATTEMPTS" env-default:"10"`
}

// MustLoad - loads config.yml when it exists, environment variables override it.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err = cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to load config from environment: %w", err)
		}
	default:
		return nil, fmt.Errorf("unable to stat config file: %w", err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
