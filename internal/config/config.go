package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig                 `mapstructure:"app"`
	Database   DatabaseConfig            `mapstructure:"database"`
	Redis      RedisConfig               `mapstructure:"redis"`
	Trading    TradingConfig             `mapstructure:"trading"`
	Risk       RiskConfig                `mapstructure:"risk"`
	Exchanges  map[string]ExchangeConfig `mapstructure:"exchanges"`
	API        APIConfig                 `mapstructure:"api"`
	Monitoring MonitoringConfig          `mapstructure:"monitoring"`
	Cascade    CascadeConfig             `mapstructure:"cascade"`
	Agents     AgentRegistryConfig       `mapstructure:"agent_registry"`
}

// CascadeConfig contains the slot ladder's shape and behavior.
type CascadeConfig struct {
	SlotCount        int     `mapstructure:"slot_count"`        // 10
	ValorBase        float64 `mapstructure:"valor_base"`         // 1000.0, per-slot VB
	DowngradeEnabled bool    `mapstructure:"downgrade_enabled"`  // false by default
	SafetyBufferPct  float64 `mapstructure:"safety_buffer_pct"`  // 0.001
}

// AgentRegistryConfig lists which consensus strategy agents participate in a
// voting round and their initial weights.
type AgentRegistryConfig struct {
	MinAgentsVoting    int                    `mapstructure:"min_agents_voting"`    // 2
	ConsensusThreshold float64                `mapstructure:"consensus_threshold"`  // 0.65
	Agents             []StrategyAgentConfig  `mapstructure:"agents"`
}

// StrategyAgentConfig configures one pluggable strategy agent.
type StrategyAgentConfig struct {
	ID     string  `mapstructure:"id"`
	Type   string  `mapstructure:"type"` // "scalping", "trend", "mean_reversion", "momentum", "breakout"
	Weight float64 `mapstructure:"weight"`
	Period int     `mapstructure:"period"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
}

// DatabaseConfig contains PostgreSQL/TimescaleDB settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RedisConfig contains Redis settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TradingConfig contains trading settings
type TradingConfig struct {
	Mode            string        `mapstructure:"mode"`             // "paper" or "live"
	Symbols         []string      `mapstructure:"symbols"`          // ["BTCUSDT", "ETHUSDT"]
	Exchange        string        `mapstructure:"exchange"`         // "binance"
	InitialCapital  float64       `mapstructure:"initial_capital"`  // 10000.0
	MaxPositions    int           `mapstructure:"max_positions"`    // 3
	DefaultQuantity float64       `mapstructure:"default_quantity"` // 0.01
	StepIntervalMS  int           `mapstructure:"step_interval_ms"` // 60000, orchestrator cycle period
}

// RiskConfig contains risk management settings
type RiskConfig struct {
	MaxPositionSize      float64 `mapstructure:"max_position_size"`       // 0.1 (10% of portfolio)
	MaxDailyLoss         float64 `mapstructure:"max_daily_loss"`          // 0.02 (2%)
	MaxDrawdown          float64 `mapstructure:"max_drawdown"`            // 0.1 (10%)
	DefaultStopLoss      float64 `mapstructure:"default_stop_loss"`       // 0.02 (2%)
	DefaultTakeProfit    float64 `mapstructure:"default_take_profit"`     // 0.05 (5%)
	MinConfidence        float64 `mapstructure:"min_confidence"`          // 0.7
	MaxRiskPerTradePct   float64 `mapstructure:"max_risk_per_trade_pct"`  // 2.0, percent of free slot capital risked per position
	MaxExposurePct       float64 `mapstructure:"max_exposure_pct"`        // 80.0, percent of total capital allowed deployed at once
	MaxConcurrentPositions int   `mapstructure:"max_concurrent_positions"` // 5, per venue
	MinPositionSizeUsd   float64 `mapstructure:"min_position_size_usd"`   // 1.0, symbols are skipped below this free capital
	EnableKellySizing    bool    `mapstructure:"enable_kelly_sizing"`     // false, recalibrate MaxRiskPerTradePct from closed-position history
	KellyFraction        float64 `mapstructure:"kelly_fraction"`          // 0.3, fractional Kelly multiplier applied to the full-Kelly recommendation
	KellyRecalibrateMinutes int  `mapstructure:"kelly_recalibrate_minutes"` // 60, how often to recompute risk-per-trade from Kelly Criterion
}

// ExchangeConfig contains exchange-specific settings
type ExchangeConfig struct {
	APIKey      string     `mapstructure:"api_key"`
	SecretKey   string     `mapstructure:"secret_key"`
	Testnet     bool       `mapstructure:"testnet"`
	RateLimitMS int        `mapstructure:"rate_limit_ms"`
	Fees        FeeConfig  `mapstructure:"fees"`
}

// FeeConfig contains exchange fee structure
type FeeConfig struct {
	Maker           float64 `mapstructure:"maker"`              // Maker fee percentage (e.g., 0.001 = 0.1%)
	Taker           float64 `mapstructure:"taker"`              // Taker fee percentage (e.g., 0.001 = 0.1%)
	BaseSlippage    float64 `mapstructure:"base_slippage"`      // Base slippage percentage (e.g., 0.0005 = 0.05%)
	MarketImpact    float64 `mapstructure:"market_impact"`      // Market impact per unit (e.g., 0.0001 = 0.01%)
	MaxSlippage     float64 `mapstructure:"max_slippage"`       // Maximum slippage percentage (e.g., 0.003 = 0.3%)
	Withdrawal      float64 `mapstructure:"withdrawal"`         // Withdrawal fee percentage (optional)
}

// APIConfig contains REST API settings
type APIConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	OrchestratorURL string `mapstructure:"orchestrator_url"`
}

// MonitoringConfig contains monitoring settings
type MonitoringConfig struct {
	PrometheusPort int  `mapstructure:"prometheus_port"`
	EnableMetrics  bool `mapstructure:"enable_metrics"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable overrides
	v.AutomaticEnv()
	v.SetEnvPrefix("CRYPTOCASCADE")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration using comprehensive validation
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "CryptoCascade")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "cryptocascade")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 10)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Trading defaults
	v.SetDefault("trading.mode", "paper")
	v.SetDefault("trading.symbols", []string{"BTCUSDT", "ETHUSDT"})
	v.SetDefault("trading.exchange", "binance")
	v.SetDefault("trading.initial_capital", 10000.0)
	v.SetDefault("trading.max_positions", 3)
	v.SetDefault("trading.default_quantity", 0.01)
	v.SetDefault("trading.step_interval_ms", 60000)

	// Risk defaults (spec's maxRiskPerTradePct/maxExposurePct/maxConcurrentPositions/minConfidence)
	v.SetDefault("risk.min_confidence", 0.70)
	v.SetDefault("risk.max_risk_per_trade_pct", 2.0)
	v.SetDefault("risk.max_exposure_pct", 80.0)
	v.SetDefault("risk.max_concurrent_positions", 5)
	v.SetDefault("risk.min_position_size_usd", 1.0)
	v.SetDefault("risk.enable_kelly_sizing", false)
	v.SetDefault("risk.kelly_fraction", 0.3)
	v.SetDefault("risk.kelly_recalibrate_minutes", 60)

	// Cascade defaults
	v.SetDefault("cascade.slot_count", 10)
	v.SetDefault("cascade.valor_base", 1000.0)
	v.SetDefault("cascade.downgrade_enabled", false)
	v.SetDefault("cascade.safety_buffer_pct", 0.001)

	// Agent registry defaults (mirrors the original system's default roster
	// and weights)
	v.SetDefault("agent_registry.min_agents_voting", 2)
	v.SetDefault("agent_registry.consensus_threshold", 0.65)
	v.SetDefault("agent_registry.agents", []map[string]interface{}{
		{"id": "scalping", "type": "scalping", "weight": 1.0, "period": 14},
		{"id": "trend", "type": "trend", "weight": 1.0, "period": 12},
		{"id": "mean_reversion", "type": "mean_reversion", "weight": 1.0, "period": 20},
		{"id": "momentum", "type": "momentum", "weight": 1.0, "period": 12},
		{"id": "breakout", "type": "breakout", "weight": 1.0, "period": 20},
	})

	// Risk defaults
	v.SetDefault("risk.max_position_size", 0.1)
	v.SetDefault("risk.max_daily_loss", 0.02)
	v.SetDefault("risk.max_drawdown", 0.1)
	v.SetDefault("risk.default_stop_loss", 0.02)
	v.SetDefault("risk.default_take_profit", 0.05)
	v.SetDefault("risk.min_confidence", 0.7)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8081)
	v.SetDefault("api.orchestrator_url", "http://localhost:8081")

	// Monitoring defaults
	v.SetDefault("monitoring.prometheus_port", 9100)
	v.SetDefault("monitoring.enable_metrics", true)

	// Exchange fee defaults (Binance-like structure)
	v.SetDefault("exchanges.binance.fees.maker", 0.001)          // 0.1% maker fee
	v.SetDefault("exchanges.binance.fees.taker", 0.001)          // 0.1% taker fee
	v.SetDefault("exchanges.binance.fees.base_slippage", 0.0005) // 0.05% base slippage
	v.SetDefault("exchanges.binance.fees.market_impact", 0.0001) // 0.01% market impact
	v.SetDefault("exchanges.binance.fees.max_slippage", 0.003)   // 0.3% max slippage
	v.SetDefault("exchanges.binance.fees.withdrawal", 0.0)       // No withdrawal fee by default
}

// Note: Comprehensive validation is now in validation.go
// The Config.Validate() method is called during Load()

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAPIAddr returns the API server address
func (c *APIConfig) GetAPIAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetOrchestratorURL returns the orchestrator URL
func (c *APIConfig) GetOrchestratorURL() string {
	return c.OrchestratorURL
}

// GetStepInterval returns the trading orchestrator's cycle period as
// time.Duration.
func (c *TradingConfig) GetStepInterval() time.Duration {
	return time.Duration(c.StepIntervalMS) * time.Millisecond
}
