// Package config 集中管理服务配置，支持环境变量与 YAML 文件两种来源
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 支持 "30s" 形式的 YAML 时长
type Duration time.Duration

// UnmarshalYAML 实现 yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("无效时长 %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std 转换为标准时长
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String 返回时长的可读形式
func (d Duration) String() string {
	return time.Duration(d).String()
}

// Config 服务配置
type Config struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
	Env  string `yaml:"env"` // development / production
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

// SchedulerConfig 排班引擎配置
type SchedulerConfig struct {
	TimeBudget          Duration `yaml:"time_budget"`
	MaxNodes            int      `yaml:"max_nodes"`
	DisableExact        bool     `yaml:"disable_exact"`
	RequireFullCoverage bool     `yaml:"require_full_coverage"`
	QuotaWeight         float64  `yaml:"quota_weight"`
	FairnessWeight      float64  `yaml:"fairness_weight"`
	CoverageWeight      float64  `yaml:"coverage_weight"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json / console
	Output string `yaml:"output"` // stdout / stderr / file
}

// DSN 返回 PostgreSQL 连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name: "yueban",
			Port: 8080,
			Env:  "development",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "yueban",
			Password: "yueban",
			DBName:   "yueban",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		Scheduler: SchedulerConfig{
			TimeBudget:          Duration(30 * time.Second),
			MaxNodes:            0,
			DisableExact:        false,
			RequireFullCoverage: true,
			QuotaWeight:         100,
			FairnessWeight:      10,
			CoverageWeight:      1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load 加载配置：默认值 -> YAML 文件（若存在）-> 环境变量覆盖
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		return nil, fmt.Errorf("无效的端口号: %d", cfg.App.Port)
	}
	if cfg.Scheduler.TimeBudget <= 0 {
		return nil, fmt.Errorf("求解时间预算必须为正: %s", cfg.Scheduler.TimeBudget)
	}
	return cfg, nil
}

// applyEnv 环境变量优先级最高
func (c *Config) applyEnv() {
	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Port = getEnvInt("APP_PORT", c.App.Port)
	c.App.Env = getEnv("APP_ENV", c.App.Env)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MaxConns = getEnvInt("DB_MAX_CONNS", c.Database.MaxConns)

	c.Scheduler.TimeBudget = Duration(getEnvDuration("SCHEDULER_TIME_BUDGET", c.Scheduler.TimeBudget.Std()))
	c.Scheduler.MaxNodes = getEnvInt("SCHEDULER_MAX_NODES", c.Scheduler.MaxNodes)
	c.Scheduler.DisableExact = getEnvBool("SCHEDULER_DISABLE_EXACT", c.Scheduler.DisableExact)
	c.Scheduler.RequireFullCoverage = getEnvBool("SCHEDULER_REQUIRE_FULL_COVERAGE", c.Scheduler.RequireFullCoverage)
	c.Scheduler.QuotaWeight = getEnvFloat("SCHEDULER_QUOTA_WEIGHT", c.Scheduler.QuotaWeight)
	c.Scheduler.FairnessWeight = getEnvFloat("SCHEDULER_FAIRNESS_WEIGHT", c.Scheduler.FairnessWeight)
	c.Scheduler.CoverageWeight = getEnvFloat("SCHEDULER_COVERAGE_WEIGHT", c.Scheduler.CoverageWeight)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
	c.Log.Output = getEnv("LOG_OUTPUT", c.Log.Output)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
