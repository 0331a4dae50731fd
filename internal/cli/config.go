package cli

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the quotectl settings
type Config struct {
	Server       string
	PollInterval time.Duration
	Timeout      time.Duration
}

// LoadConfig reads .quotectl.yaml from $HOME or the working directory, then
// QUOTECTL_* environment variables. Flags bound to viper win over both.
func LoadConfig() *Config {
	viper.SetConfigName(".quotectl")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	viper.SetDefault("server", "http://localhost:8080")
	viper.SetDefault("poll_interval", "3s")
	viper.SetDefault("timeout", "30s")

	viper.SetEnvPrefix("QUOTECTL")
	viper.AutomaticEnv()

	// optional file
	_ = viper.ReadInConfig()

	return &Config{
		Server:       viper.GetString("server"),
		PollInterval: viper.GetDuration("poll_interval"),
		Timeout:      viper.GetDuration("timeout"),
	}
}
