package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	MarketData MarketData `mapstructure:"market_data"`
	Detection  Detection  `mapstructure:"detection"`
	Logger     Logger     `mapstructure:"logger"`
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
}

// MarketData holds the configuration for the price-bar provider.
type MarketData struct {
	BaseURL        string  `mapstructure:"base_url"`
	ApiKey         string  `mapstructure:"apiKey"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Detection holds the configuration for the SL/TP detection engine.
type Detection struct {
	TickInterval int  `mapstructure:"tick_interval"` // seconds between batches, 0 disables the loop
	FetchBars    bool `mapstructure:"fetch_bars"`    // refresh price bars from the provider before each batch
}

// Server holds the configuration for the HTTP servers.
type Server struct {
	Port   int `mapstructure:"port"`
	UIPort int `mapstructure:"ui_port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("market_data.rate_limit", 5) // requests per second
	viper.SetDefault("market_data.rate_limit_burst", 2)
	viper.SetDefault("detection.tick_interval", 300)
	viper.SetDefault("detection.fetch_bars", true)
	viper.SetDefault("database.dsn", "journal.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
