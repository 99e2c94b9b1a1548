package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type FilesConfig struct {
	RootDir string `yaml:"root_dir"`
}

type OTPConfig struct {
	TTLMinutes          int `yaml:"ttl_minutes"`           // code lifetime
	MaxAttempts         int `yaml:"max_attempts"`          // verify attempts per challenge
	IssueLimit          int `yaml:"issue_limit"`           // issues per window per identity+purpose
	IssueWindowMinutes  int `yaml:"issue_window_minutes"`  // sliding throttle window
	RedeemWindowMinutes int `yaml:"redeem_window_minutes"` // how long a verified code admits a booking
}

type DispatcherConfig struct {
	MaxRetries          int `yaml:"max_retries"`
	BackoffBaseSeconds  int `yaml:"backoff_base_seconds"`
	BackoffCapSeconds   int `yaml:"backoff_cap_seconds"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
}

type RatingsConfig struct {
	AllowConfirmed bool `yaml:"allow_confirmed"` // rate from Confirmed too, not only Completed
	RequireImage   bool `yaml:"require_image"`   // fail submission when no image survives compression
	MaxImages      int  `yaml:"max_images"`
	MaxDimension   int  `yaml:"max_dimension"`
	JPEGQuality    int  `yaml:"jpeg_quality"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`
	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUser     string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
	} `yaml:"email"`
	Auth struct {
		JWTSecret     string `yaml:"jwt_secret"`
		AdminEmail    string `yaml:"admin_email"`
		AdminPassword string `yaml:"admin_password"`
	} `yaml:"auth"`
	Files      FilesConfig      `yaml:"files"`
	OTP        OTPConfig        `yaml:"otp"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Ratings    RatingsConfig    `yaml:"ratings"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

func LoadConfig() *Config {
	f, err := os.Open("config/config.yaml")
	if err != nil {
		panic("Failed to open config.yaml: " + err.Error())
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		panic("Failed to parse config.yaml: " + err.Error())
	}

	// Secrets may be referenced as ${ENV_VAR} in the YAML.
	cfg.Database.DSN = os.ExpandEnv(cfg.Database.DSN)
	cfg.Email.SMTPUser = os.ExpandEnv(cfg.Email.SMTPUser)
	cfg.Email.SMTPPassword = os.ExpandEnv(cfg.Email.SMTPPassword)
	cfg.Auth.JWTSecret = os.ExpandEnv(cfg.Auth.JWTSecret)
	cfg.Auth.AdminPassword = os.ExpandEnv(cfg.Auth.AdminPassword)
	cfg.Telegram.BotToken = os.ExpandEnv(cfg.Telegram.BotToken)

	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Files.RootDir == "" {
		cfg.Files.RootDir = "./files"
	}
	if cfg.OTP.TTLMinutes <= 0 {
		cfg.OTP.TTLMinutes = 5
	}
	if cfg.OTP.MaxAttempts <= 0 {
		cfg.OTP.MaxAttempts = 5
	}
	if cfg.OTP.IssueLimit <= 0 {
		cfg.OTP.IssueLimit = 3
	}
	if cfg.OTP.IssueWindowMinutes <= 0 {
		cfg.OTP.IssueWindowMinutes = 10
	}
	if cfg.OTP.RedeemWindowMinutes <= 0 {
		cfg.OTP.RedeemWindowMinutes = 10
	}
	if cfg.Dispatcher.MaxRetries <= 0 {
		cfg.Dispatcher.MaxRetries = 3
	}
	if cfg.Dispatcher.BackoffBaseSeconds <= 0 {
		cfg.Dispatcher.BackoffBaseSeconds = 2
	}
	if cfg.Dispatcher.BackoffCapSeconds <= 0 {
		cfg.Dispatcher.BackoffCapSeconds = 30
	}
	if cfg.Dispatcher.PollIntervalSeconds <= 0 {
		cfg.Dispatcher.PollIntervalSeconds = 2
	}
	if cfg.Ratings.MaxImages <= 0 {
		cfg.Ratings.MaxImages = 5
	}
	if cfg.Ratings.MaxDimension <= 0 {
		cfg.Ratings.MaxDimension = 1280
	}
	if cfg.Ratings.JPEGQuality <= 0 {
		cfg.Ratings.JPEGQuality = 80
	}
}

func (c *OTPConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

func (c *OTPConfig) IssueWindow() time.Duration {
	return time.Duration(c.IssueWindowMinutes) * time.Minute
}

func (c *OTPConfig) RedeemWindow() time.Duration {
	return time.Duration(c.RedeemWindowMinutes) * time.Minute
}
