package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"stolik/internal/models"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Site       SiteConfig       `yaml:"site"`
	Booking    BookingConfig    `yaml:"booking"`
	Redis      RedisConfig      `yaml:"redis"`
	Session    SessionConfig    `yaml:"session"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port                 int `yaml:"port"`
	ReadHeaderTimeoutSec int `yaml:"read_header_timeout_sec"`
	WriteTimeoutSec      int `yaml:"write_timeout_sec"`
	ShutdownTimeoutSec   int `yaml:"shutdown_timeout_sec"`
}

type SiteConfig struct {
	ContentPath  string `yaml:"content_path"`
	TemplatesDir string `yaml:"templates_dir"`
	StaticDir    string `yaml:"static_dir"`
}

type BookingConfig struct {
	MinGuests     int `yaml:"min_guests"`
	MaxGuests     int `yaml:"max_guests"`
	DefaultGuests int `yaml:"default_guests"`
	NotesMaxLen   int `yaml:"notes_max_len"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type SessionConfig struct {
	CookieName string `yaml:"cookie_name"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type RateLimitConfig struct {
	RPS             float64 `yaml:"rps"`
	Burst           int     `yaml:"burst"`
	SubmitLimit     int     `yaml:"submit_limit"`
	SubmitWindowSec int     `yaml:"submit_window_sec"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env подхватывается, если существует
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Site.ContentPath == "" {
		return errors.New("site content path is required")
	}
	if c.Site.TemplatesDir == "" {
		return errors.New("templates dir is required")
	}
	if c.Booking.MinGuests > c.Booking.MaxGuests {
		return fmt.Errorf("booking min_guests %d exceeds max_guests %d", c.Booking.MinGuests, c.Booking.MaxGuests)
	}
	if c.Booking.DefaultGuests < c.Booking.MinGuests || c.Booking.DefaultGuests > c.Booking.MaxGuests {
		return fmt.Errorf("booking default_guests %d is outside [%d, %d]", c.Booking.DefaultGuests, c.Booking.MinGuests, c.Booking.MaxGuests)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadHeaderTimeoutSec == 0 {
		c.Server.ReadHeaderTimeoutSec = 5
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 15
	}
	if c.Server.ShutdownTimeoutSec == 0 {
		c.Server.ShutdownTimeoutSec = 10
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	// Booking defaults
	if c.Booking.MinGuests == 0 {
		c.Booking.MinGuests = models.MinGuests
	}
	if c.Booking.MaxGuests == 0 {
		c.Booking.MaxGuests = models.MaxGuests
	}
	if c.Booking.DefaultGuests == 0 {
		c.Booking.DefaultGuests = models.DefaultGuests
	}
	if c.Booking.NotesMaxLen == 0 {
		c.Booking.NotesMaxLen = models.NotesMaxLen
	}

	if c.Session.CookieName == "" {
		c.Session.CookieName = "stolik_session"
	}
	if c.Session.TTLSeconds == 0 {
		c.Session.TTLSeconds = models.DefaultSessionTTL
	}

	if c.RateLimit.RPS == 0 {
		c.RateLimit.RPS = 10
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if c.RateLimit.SubmitLimit == 0 {
		c.RateLimit.SubmitLimit = models.RateLimitRequests
	}
	if c.RateLimit.SubmitWindowSec == 0 {
		c.RateLimit.SubmitWindowSec = models.RateLimitWindow
	}
}
