package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const driverName = "mysql"

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	JWTSecret string `yaml:"jwt_secret"`
}

// LendingConfig is the lending policy read by the core per operation.
// Changes apply prospectively only; settled fines are never recomputed.
type LendingConfig struct {
	LoanPeriodDays    int     `yaml:"loan_period_days"`
	RenewalPeriodDays int     `yaml:"renewal_period_days"`
	MaxRenewals       int     `yaml:"max_renewals"`
	FinePerDay        float64 `yaml:"fine_per_day"`
	DueSoonDays       int     `yaml:"due_soon_days"`
	ExpiryWindowDays  int     `yaml:"expiry_window_days"`
}

type SchedulerConfig struct {
	FineSweepInterval   time.Duration `yaml:"fine_sweep_interval"`
	ExpirySweepInterval time.Duration `yaml:"expiry_sweep_interval"`
}

// UnmarshalYAML accepts Go duration strings ("24h", "30m") for the
// intervals, which yaml cannot decode into time.Duration on its own.
func (s *SchedulerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		FineSweepInterval   string `yaml:"fine_sweep_interval"`
		ExpirySweepInterval string `yaml:"expiry_sweep_interval"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.FineSweepInterval != "" {
		d, err := time.ParseDuration(raw.FineSweepInterval)
		if err != nil {
			return fmt.Errorf("fine_sweep_interval: %w", err)
		}
		s.FineSweepInterval = d
	}
	if raw.ExpirySweepInterval != "" {
		d, err := time.ParseDuration(raw.ExpirySweepInterval)
		if err != nil {
			return fmt.Errorf("expiry_sweep_interval: %w", err)
		}
		s.ExpirySweepInterval = d
	}
	return nil
}

type Config struct {
	Mode      string          `yaml:"mode"`
	Server    ServerConfig    `yaml:"server"`
	DB        DatabaseConfig  `yaml:"database"`
	Lending   LendingConfig   `yaml:"lending"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Lending.LoanPeriodDays <= 0 {
		c.Lending.LoanPeriodDays = 14
	}
	if c.Lending.RenewalPeriodDays <= 0 {
		c.Lending.RenewalPeriodDays = 14
	}
	if c.Lending.MaxRenewals <= 0 {
		c.Lending.MaxRenewals = 3
	}
	if c.Lending.FinePerDay <= 0 {
		c.Lending.FinePerDay = 5
	}
	if c.Lending.DueSoonDays <= 0 {
		c.Lending.DueSoonDays = 3
	}
	if c.Lending.ExpiryWindowDays <= 0 {
		c.Lending.ExpiryWindowDays = 7
	}
	if c.Scheduler.FineSweepInterval <= 0 {
		c.Scheduler.FineSweepInterval = 24 * time.Hour
	}
	if c.Scheduler.ExpirySweepInterval <= 0 {
		c.Scheduler.ExpirySweepInterval = 12 * time.Hour
	}
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Pool sizing: keep the sum across instances under MySQL max_connections.
	conn.SetMaxOpenConns(80)
	conn.SetMaxIdleConns(20)
	conn.SetConnMaxLifetime(30 * time.Minute)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	return conn, nil
}
