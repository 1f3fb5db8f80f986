package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Sources   SourcesConfig   `yaml:"sources"`
	LinkCheck LinkCheckConfig `yaml:"link_check"`
	Notify    NotifyConfig    `yaml:"notify"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ServerConfig holds HTTP server configuration for the API service
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds the outbound messaging gateway broker configuration
type RabbitMQConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	VHost          string        `yaml:"vhost"`
	Exchange       string        `yaml:"exchange"`
	ExchangeType   string        `yaml:"exchange_type"`
	Queue          string        `yaml:"queue"`
	RoutingKey     string        `yaml:"routing_key"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
	Heartbeat      time.Duration `yaml:"heartbeat"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
}

// RedisConfig holds the coordination store configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// SourcesConfig holds source aggregation settings
type SourcesConfig struct {
	MaxConcurrent    int           `yaml:"max_concurrent"`
	RequestDelay     time.Duration `yaml:"request_delay"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	RetryAttempts    int           `yaml:"retry_attempts"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	MaxQueriesPerRun int           `yaml:"max_queries_per_run"`
	Adzuna           AdzunaConfig  `yaml:"adzuna"`
}

// AdzunaConfig holds Adzuna API credentials. When empty the adapter is not
// registered and the remaining sources still run.
type AdzunaConfig struct {
	AppID   string `yaml:"app_id"`
	AppKey  string `yaml:"app_key"`
	Country string `yaml:"country"`
}

// LinkCheckConfig holds link health monitor settings
type LinkCheckConfig struct {
	BatchSize          int           `yaml:"batch_size"`
	Staleness          time.Duration `yaml:"staleness"`
	ProbeTimeout       time.Duration `yaml:"probe_timeout"`
	ProbeConcurrency   int           `yaml:"probe_concurrency"`
	BrokenBeforeRemove int           `yaml:"broken_before_remove"`
}

// NotifyConfig holds dispatcher settings
type NotifyConfig struct {
	OutboundConcurrency int           `yaml:"outbound_concurrency"`
	InterSendDelay      time.Duration `yaml:"inter_send_delay"`
	SendTimeout         time.Duration `yaml:"send_timeout"`
	RetryAttempts       int           `yaml:"retry_attempts"`
	RetryBackoff        time.Duration `yaml:"retry_backoff"`
	OnDemandLimit       int           `yaml:"on_demand_limit"`
}

// SchedulerConfig holds cron specs for the three pipelines
type SchedulerConfig struct {
	ScrapeSpec   string        `yaml:"scrape_spec"`
	SweepSpec    string        `yaml:"sweep_spec"`
	DueCheckSpec string        `yaml:"due_check_spec"`
	RunLockTTL   time.Duration `yaml:"run_lock_ttl"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

// applyDefaults fills in values the file may omit
func (c *Config) applyDefaults() {
	if c.Sources.MaxConcurrent <= 0 {
		c.Sources.MaxConcurrent = 4
	}
	if c.Sources.RequestDelay <= 0 {
		c.Sources.RequestDelay = 5 * time.Second
	}
	if c.Sources.FetchTimeout <= 0 {
		c.Sources.FetchTimeout = 15 * time.Second
	}
	if c.Sources.RetryAttempts <= 0 {
		c.Sources.RetryAttempts = 3
	}
	if c.Sources.RetryBackoff <= 0 {
		c.Sources.RetryBackoff = 2 * time.Second
	}
	if c.Sources.MaxQueriesPerRun <= 0 {
		c.Sources.MaxQueriesPerRun = 10
	}
	if c.LinkCheck.BatchSize <= 0 {
		c.LinkCheck.BatchSize = 100
	}
	if c.LinkCheck.Staleness <= 0 {
		c.LinkCheck.Staleness = 24 * time.Hour
	}
	if c.LinkCheck.ProbeTimeout <= 0 {
		c.LinkCheck.ProbeTimeout = 10 * time.Second
	}
	if c.LinkCheck.ProbeConcurrency <= 0 {
		c.LinkCheck.ProbeConcurrency = 3
	}
	if c.LinkCheck.BrokenBeforeRemove <= 0 {
		c.LinkCheck.BrokenBeforeRemove = 3
	}
	if c.Notify.OutboundConcurrency <= 0 {
		c.Notify.OutboundConcurrency = 5
	}
	if c.Notify.InterSendDelay <= 0 {
		c.Notify.InterSendDelay = time.Second
	}
	if c.Notify.SendTimeout <= 0 {
		c.Notify.SendTimeout = 10 * time.Second
	}
	if c.Notify.RetryAttempts <= 0 {
		c.Notify.RetryAttempts = 2
	}
	if c.Notify.RetryBackoff <= 0 {
		c.Notify.RetryBackoff = time.Second
	}
	if c.Notify.OnDemandLimit <= 0 {
		c.Notify.OnDemandLimit = 3
	}
	if c.Scheduler.ScrapeSpec == "" {
		c.Scheduler.ScrapeSpec = "@every 6h"
	}
	if c.Scheduler.SweepSpec == "" {
		c.Scheduler.SweepSpec = "@every 1h"
	}
	if c.Scheduler.DueCheckSpec == "" {
		c.Scheduler.DueCheckSpec = "@every 1m"
	}
	if c.Scheduler.RunLockTTL <= 0 {
		c.Scheduler.RunLockTTL = 30 * time.Minute
	}
}

// ValidateAPIConfig checks the fields the API service depends on
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	return c.validateShared()
}

// ValidatePipelineConfig checks the fields the pipeline service depends on
func (c *Config) ValidatePipelineConfig() error {
	if err := c.validateShared(); err != nil {
		return err
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required")
	}

	if c.Sources.MaxConcurrent <= 0 {
		return fmt.Errorf("sources max_concurrent must be greater than 0")
	}

	if c.LinkCheck.BrokenBeforeRemove <= 0 {
		return fmt.Errorf("link_check broken_before_remove must be greater than 0")
	}

	if c.Notify.OutboundConcurrency <= 0 {
		return fmt.Errorf("notify outbound_concurrency must be greater than 0")
	}

	return nil
}

func (c *Config) validateShared() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}
