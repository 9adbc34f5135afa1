package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Data       DataConfig       `yaml:"data"`
	Booking    BookingConfig    `yaml:"booking"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the push notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
// Push delivery is disabled when either key is empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether web push can be used.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DataConfig describes where the JSON data files live.
type DataConfig struct {
	Dir                  string `yaml:"dir"`
	ReadOnly             bool   `yaml:"read_only"`
	WatchExternalChanges bool   `yaml:"watch_external_changes"`
}

// BookingConfig holds the reservation policy knobs.
type BookingConfig struct {
	AdvanceDays          int            `yaml:"advance_days"`
	FirstUserIsAdmin     *bool          `yaml:"first_user_is_admin"`
	ContinueOnError      *bool          `yaml:"continue_on_error"`
	Timezone             string         `yaml:"timezone"`
	Slots                []string       `yaml:"slots"`
	UserDisableAfterDays int            `yaml:"user_disable_after_days"`
	UserExpireAfterDays  int            `yaml:"user_expire_after_days"`
	Location             *time.Location `yaml:"-"`
}

// AuthConfig names the request headers set by the authenticating proxy.
type AuthConfig struct {
	SubjectHeader string `yaml:"subject_header"`
	EmailHeader   string `yaml:"email_header"`
	NameHeader    string `yaml:"name_header"`
	ImageHeader   string `yaml:"image_header"`
}

// FirstUserAdmin returns the effective bootstrap policy.
func (b BookingConfig) FirstUserAdmin() bool {
	return b.FirstUserIsAdmin == nil || *b.FirstUserIsAdmin
}

// ContinueOnFailure returns the effective commit failure policy.
func (b BookingConfig) ContinueOnFailure() bool {
	return b.ContinueOnError == nil || *b.ContinueOnError
}

// UserDisableAfter is the age after which a user record is disabled at load.
func (b BookingConfig) UserDisableAfter() time.Duration {
	return time.Duration(b.UserDisableAfterDays) * 24 * time.Hour
}

// UserExpireAfter is the age after which a disabled user record is dropped at load.
func (b BookingConfig) UserExpireAfter() time.Duration {
	return time.Duration(b.UserExpireAfterDays) * 24 * time.Hour
}

// Load reads the configuration from the given path. A missing file is only
// tolerated when allowMissing is set, in which case defaults are used.
// logger may be nil.
func Load(path string, allowMissing bool, logger hclog.Logger) (*Config, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	var cfg Config

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	case allowMissing && errors.Is(err, fs.ErrNotExist):
		logger.Warn("config file not found; using defaults", "path", path)
	default:
		return nil, err
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := applyDefaults(&cfg, logger); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Data.Dir = v
	}
	if v := os.Getenv("ADVANCE_RESERVATION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ADVANCE_RESERVATION_DAYS: %w", err)
		}
		cfg.Booking.AdvanceDays = n
	}
	if v := os.Getenv("FIRST_USER_IS_ADMIN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FIRST_USER_IS_ADMIN: %w", err)
		}
		cfg.Booking.FirstUserIsAdmin = &b
	}
	if v := os.Getenv("CONTINUE_ON_ERROR"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CONTINUE_ON_ERROR: %w", err)
		}
		cfg.Booking.ContinueOnError = &b
	}
	return nil
}

func applyDefaults(cfg *Config, logger hclog.Logger) error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "./data"
	}

	if cfg.Booking.AdvanceDays <= 0 {
		cfg.Booking.AdvanceDays = 7
	}
	if cfg.Booking.UserDisableAfterDays <= 0 {
		cfg.Booking.UserDisableAfterDays = 547 // 1.5 years
	}
	if cfg.Booking.UserExpireAfterDays <= 0 {
		cfg.Booking.UserExpireAfterDays = 730
	}
	cfg.Booking.Location = time.Local
	if cfg.Booking.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Booking.Timezone)
		if err != nil {
			return fmt.Errorf("booking.timezone: %w", err)
		}
		cfg.Booking.Location = loc
	}

	if cfg.Auth.SubjectHeader == "" {
		cfg.Auth.SubjectHeader = "X-Auth-Subject"
	}
	if cfg.Auth.EmailHeader == "" {
		cfg.Auth.EmailHeader = "X-Auth-Email"
	}
	if cfg.Auth.NameHeader == "" {
		cfg.Auth.NameHeader = "X-Auth-Name"
	}
	if cfg.Auth.ImageHeader == "" {
		cfg.Auth.ImageHeader = "X-Auth-Image"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		logger.Info("worker_pool.size is not set or invalid; defaulting to 1", "size", cfg.WorkerPool.Size)
		cfg.WorkerPool.Size = 1
	}
	return nil
}
