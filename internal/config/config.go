package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // 服务器配置
	Postgres PostgresConfig `mapstructure:"postgres"` // PostgreSQL配置
	Scorer   ScorerConfig   `mapstructure:"scorer"`   // 外部条款评分服务配置
	Risk     RiskConfig     `mapstructure:"risk"`     // 风险评估阈值配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// PostgresConfig PostgreSQL数据库配置
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// ScorerConfig 外部条款评分服务（NLP模型服务）配置
type ScorerConfig struct {
	BaseURL   string `mapstructure:"base_url"`   // 评分服务基础地址
	Timeout   int    `mapstructure:"timeout"`    // 请求超时（秒）
	Proxy     string `mapstructure:"proxy"`      // 代理地址
	QueueSize int    `mapstructure:"queue_size"` // 后台评分任务队列长度
}

// RiskConfig 风险评估阈值配置
type RiskConfig struct {
	ClauseDangerThreshold  float64 `mapstructure:"clause_danger_threshold"`  // 条款限制性分数danger阈值
	ClauseWarningThreshold float64 `mapstructure:"clause_warning_threshold"` // 条款限制性分数warning阈值
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("SCORER_BASE_URL"); v != "" {
		cfg.Scorer.BaseURL = v
	}
	if v := os.Getenv("SCORER_PROXY"); v != "" {
		cfg.Scorer.Proxy = v
	}
}

// applyDefaults 未配置项兜底（阈值与队列长度为0时取默认值）
func applyDefaults(cfg *Config) {
	if cfg.Risk.ClauseDangerThreshold <= 0 {
		cfg.Risk.ClauseDangerThreshold = 0.8
	}
	if cfg.Risk.ClauseWarningThreshold <= 0 {
		cfg.Risk.ClauseWarningThreshold = 0.5
	}
	if cfg.Scorer.QueueSize <= 0 {
		cfg.Scorer.QueueSize = 64
	}
	if cfg.Scorer.Timeout <= 0 {
		cfg.Scorer.Timeout = 30
	}
}
