// Package config loads application configuration
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
// アプリケーション設定を保持
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig holds database configuration
// データベース設定を保持
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// APIConfig holds API server configuration
// APIサーバー設定を保持
type APIConfig struct {
	Port          int           `yaml:"port"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	EnableCORS    bool          `yaml:"enable_cors"`
	EnableMetrics bool          `yaml:"enable_metrics"`
}

// LedgerConfig holds stock ledger configuration
// 在庫台帳の設定を保持
type LedgerConfig struct {
	MaxRetries          int  `yaml:"max_retries"`           // 競合時の最大再試行回数
	JournalEnabled      bool `yaml:"journal_enabled"`       // 在庫移動記録の有効化
	DefaultHistoryLimit int  `yaml:"default_history_limit"` // 履歴取得のデフォルト件数
}

// LoggingConfig holds logging configuration
// ログ設定を保持
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, file
}

// Load loads configuration from an optional YAML file and environment
// variables. Environment variables take precedence over file values.
// YAMLファイル（任意）と環境変数から設定を読み込み
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "ledger",
			Password: "password",
			DBName:   "ledger_db",
			SSLMode:  "disable",
		},
		API: APIConfig{
			Port:          8080,
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  30 * time.Second,
			IdleTimeout:   60 * time.Second,
			EnableCORS:    true,
			EnableMetrics: true,
		},
		Ledger: LedgerConfig{
			MaxRetries:          3,
			JournalEnabled:      true,
			DefaultHistoryLimit: 50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("設定ファイル読み込みに失敗しました: %w", err)
		}
	}

	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定バリデーションに失敗しました: %w", err)
	}

	return cfg, nil
}

// loadFile overlays values from a YAML configuration file
// YAML設定ファイルの値を上書き適用
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// loadEnv overlays values from environment variables
// 環境変数の値を上書き適用
func (c *Config) loadEnv() {
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.API.Port = getEnvAsInt("API_PORT", c.API.Port)
	c.API.ReadTimeout = getEnvAsDuration("API_READ_TIMEOUT", c.API.ReadTimeout)
	c.API.WriteTimeout = getEnvAsDuration("API_WRITE_TIMEOUT", c.API.WriteTimeout)
	c.API.IdleTimeout = getEnvAsDuration("API_IDLE_TIMEOUT", c.API.IdleTimeout)
	c.API.EnableCORS = getEnvAsBool("API_ENABLE_CORS", c.API.EnableCORS)
	c.API.EnableMetrics = getEnvAsBool("API_ENABLE_METRICS", c.API.EnableMetrics)

	c.Ledger.MaxRetries = getEnvAsInt("LEDGER_MAX_RETRIES", c.Ledger.MaxRetries)
	c.Ledger.JournalEnabled = getEnvAsBool("LEDGER_JOURNAL_ENABLED", c.Ledger.JournalEnabled)
	c.Ledger.DefaultHistoryLimit = getEnvAsInt("LEDGER_DEFAULT_HISTORY_LIMIT", c.Ledger.DefaultHistoryLimit)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)
	c.Logging.Output = getEnv("LOG_OUTPUT", c.Logging.Output)
}

// Validate validates the configuration
// 設定をバリデーション
func (c *Config) Validate() error {
	// データベース設定チェック
	if c.Database.Host == "" {
		return fmt.Errorf("データベースホストが指定されていません")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("無効なデータベースポート: %d", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("データベースユーザーが指定されていません")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("データベース名が指定されていません")
	}

	// API設定チェック
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("無効なAPIポート: %d", c.API.Port)
	}

	// 台帳設定チェック
	if c.Ledger.MaxRetries < 0 {
		return fmt.Errorf("再試行回数は0以上である必要があります")
	}
	if c.Ledger.DefaultHistoryLimit <= 0 {
		return fmt.Errorf("履歴デフォルト件数は正の値である必要があります")
	}

	// ログ設定チェック
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("無効なログレベル: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("無効なログフォーマット: %s", c.Logging.Format)
	}

	return nil
}

// DSN generates PostgreSQL Data Source Name
// PostgreSQLデータソース名を生成
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// ヘルパー関数

// getEnv gets environment variable with default value
// デフォルト値付きで環境変数を取得
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer with default value
// デフォルト値付きで環境変数を整数として取得
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets environment variable as boolean with default value
// デフォルト値付きで環境変数をbooleanとして取得
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets environment variable as duration with default value
// デフォルト値付きで環境変数をdurationとして取得
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
