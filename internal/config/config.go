package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Database struct {
		DSN             string `mapstructure:"dsn"`
		MaxOpenConns    int    `mapstructure:"max_open_conns"`
		MaxIdleConns    int    `mapstructure:"max_idle_conns"`
		ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // seconds
	} `mapstructure:"database"`
	Redis struct {
		Address  string `mapstructure:"address"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`
	Ledger struct {
		AutoCreateWallets bool `mapstructure:"auto_create_wallets"`
		DefaultPageSize   int  `mapstructure:"default_page_size"`
		MaxPageSize       int  `mapstructure:"max_page_size"`
	} `mapstructure:"ledger"`
	Otp struct {
		Digits         int           `mapstructure:"digits"`
		TTL            time.Duration `mapstructure:"ttl"`
		RateLimit      int           `mapstructure:"rate_limit"` // issues per phone per window, 0 disables
		RateWindow     time.Duration `mapstructure:"rate_window"`
		GatewayURL     string        `mapstructure:"gateway_url"`
		GatewayAPIKey  string        `mapstructure:"gateway_api_key"`
		GatewayTimeout time.Duration `mapstructure:"gateway_timeout"`
	} `mapstructure:"otp"`
	Withdrawal struct {
		FeePercent float64 `mapstructure:"fee_percent"`
	} `mapstructure:"withdrawal"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// LoadConfig loads configuration from an optional YAML file and
// WALLETCORE_-prefixed environment variables, env winning over file.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvPrefix("WALLETCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if len(paths) == 0 {
		paths = []string{"./config.yaml", "./configs/config.yaml", "/etc/walletcore/config.yaml"}
	}
	for _, path := range paths {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				continue
			}
			// Missing files are fine, unreadable or malformed ones are not
			if strings.Contains(err.Error(), "no such file") {
				continue
			}
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 3600)

	v.SetDefault("ledger.auto_create_wallets", true)
	v.SetDefault("ledger.default_page_size", 10)
	v.SetDefault("ledger.max_page_size", 100)

	v.SetDefault("otp.digits", 6)
	v.SetDefault("otp.ttl", 5*time.Minute)
	v.SetDefault("otp.rate_limit", 5)
	v.SetDefault("otp.rate_window", time.Hour)
	v.SetDefault("otp.gateway_timeout", 10*time.Second)

	v.SetDefault("withdrawal.fee_percent", 0.0)

	v.SetDefault("log.level", "info")
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Otp.Digits < 4 || cfg.Otp.Digits > 10 {
		return fmt.Errorf("otp digits must be between 4 and 10, got %d", cfg.Otp.Digits)
	}
	if cfg.Otp.TTL <= 0 {
		return fmt.Errorf("otp ttl must be positive")
	}
	if cfg.Withdrawal.FeePercent < 0 || cfg.Withdrawal.FeePercent >= 100 {
		return fmt.Errorf("withdrawal fee percent out of range: %f", cfg.Withdrawal.FeePercent)
	}
	if cfg.Ledger.DefaultPageSize <= 0 || cfg.Ledger.DefaultPageSize > cfg.Ledger.MaxPageSize {
		return fmt.Errorf("invalid ledger page sizes: default %d, max %d",
			cfg.Ledger.DefaultPageSize, cfg.Ledger.MaxPageSize)
	}
	return nil
}
