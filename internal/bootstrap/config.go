package bootstrap

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerAddr string
	LogLevel   string
	Version    string

	APIBaseURL string
	APIKey     string

	Model         string
	Language      string
	AutoReconnect bool

	ConnectTimeout time.Duration
	HealthInterval time.Duration
	StaleThreshold time.Duration

	DeviceSampleRate int
	DeviceChannels   int

	DatabasePath  string
	Notifications bool
	Clipboard     bool
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", "127.0.0.1:7853"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Version:    getEnv("VERSION", "dev"),

		APIBaseURL: getEnv("API_BASE_URL", "https://api.deepgram.com/v1"),
		APIKey:     getEnv("API_KEY", ""),

		Model:         getEnv("MODEL", "nova-2"),
		Language:      getEnv("LANGUAGE", ""),
		AutoReconnect: getEnv("AUTO_RECONNECT", "true") == "true",

		ConnectTimeout: getEnvDuration("CONNECT_TIMEOUT", 15*time.Second),
		HealthInterval: getEnvDuration("HEALTH_INTERVAL", 30*time.Second),
		StaleThreshold: getEnvDuration("STALE_THRESHOLD", 60*time.Second),

		DeviceSampleRate: getEnvInt("DEVICE_SAMPLE_RATE", 44100),
		DeviceChannels:   getEnvInt("DEVICE_CHANNELS", 1),

		DatabasePath:  getEnv("DATABASE_PATH", "voxtype.db"),
		Notifications: getEnv("NOTIFICATIONS", "true") == "true",
		Clipboard:     getEnv("CLIPBOARD", "true") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
