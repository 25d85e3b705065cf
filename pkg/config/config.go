package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the pool API server configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Chains   []ChainConfig  `mapstructure:"chains"`
	Auth     AuthConfig     `mapstructure:"auth"`
	TxFlow   TxFlowConfig   `mapstructure:"txflow"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Subgraph SubgraphConfig `mapstructure:"subgraph"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

// ChainConfig describes one supported network. The pool contract address may
// be empty on chains where the contract is not deployed; readers for such
// chains report no data instead of failing.
type ChainConfig struct {
	ChainID      int64  `mapstructure:"chain_id"`
	Name         string `mapstructure:"name"`
	RPCURL       string `mapstructure:"rpc_url"`
	PoolContract string `mapstructure:"pool_contract"`
	SubgraphURL  string `mapstructure:"subgraph_url"`
}

// AuthConfig contains JWKS settings for resolving bearer tokens to wallet
// addresses. When the URL is empty every request is treated as anonymous.
type AuthConfig struct {
	JWKSURL      string `mapstructure:"jwks_url"`
	Issuer       string `mapstructure:"issuer"`
	AddressClaim string `mapstructure:"address_claim"`
}

// TxFlowConfig contains transaction orchestration settings
type TxFlowConfig struct {
	ConfirmTimeout  time.Duration `mapstructure:"confirm_timeout"`
	SubmitTimeout   time.Duration `mapstructure:"submit_timeout"`
	SignerKey       string        `mapstructure:"signer_key"`
	DefaultChainID  int64         `mapstructure:"default_chain_id"`
	PollingInterval time.Duration `mapstructure:"polling_interval"`
}

// CacheConfig contains reconciliation cache settings
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// SubgraphConfig contains indexer query settings
type SubgraphConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxLag         time.Duration `mapstructure:"max_lag"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.database", "pool_api")

	// Auth defaults
	viper.SetDefault("auth.address_claim", "wallet_address")

	// Transaction flow defaults
	viper.SetDefault("txflow.confirm_timeout", "3m")
	viper.SetDefault("txflow.submit_timeout", "60s")
	viper.SetDefault("txflow.polling_interval", "2s")

	// Cache defaults
	viper.SetDefault("cache.ttl", "30s")

	// Subgraph defaults
	viper.SetDefault("subgraph.request_timeout", "10s")
	viper.SetDefault("subgraph.max_lag", "30s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output_path", "stdout")
}

func validate(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if len(config.Chains) == 0 {
		return fmt.Errorf("at least one chain must be configured")
	}
	for i, chain := range config.Chains {
		if chain.ChainID == 0 {
			return fmt.Errorf("chains[%d].chain_id is required", i)
		}
		if chain.RPCURL == "" {
			return fmt.Errorf("chains[%d].rpc_url is required", i)
		}
	}
	return nil
}

// Chain returns the configuration for the given chain id, or nil when the
// chain is not configured.
func (c *Config) Chain(chainID int64) *ChainConfig {
	for i := range c.Chains {
		if c.Chains[i].ChainID == chainID {
			return &c.Chains[i]
		}
	}
	return nil
}

// DefaultChainID returns the configured default chain, falling back to the
// first configured chain.
func (c *Config) DefaultChainID() int64 {
	if c.TxFlow.DefaultChainID != 0 {
		return c.TxFlow.DefaultChainID
	}
	return c.Chains[0].ChainID
}

// GetConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
