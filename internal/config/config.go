package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the process configuration. Environment variables win over
// flags, flags over defaults.
type Config struct {
	RunAddress string `env:"RUN_ADDRESS"`
	LogLevel   string `env:"LOG_LEVEL"`
	GinMode    string `env:"GIN_MODE"`
}

func LoadConfig() (*Config, error) {
	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	loadFlags(&flagsConfig)

	return mergeConfig(&envConfig, &flagsConfig), nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(flagConfig *Config) {
	flag.StringVar(&flagConfig.RunAddress, "a", ":8080", "Run address in format host:port")
	flag.StringVar(&flagConfig.LogLevel, "l", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&flagConfig.GinMode, "m", "release", "Gin mode (debug, release, test)")

	flag.Parse()
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	return &Config{
		RunAddress: defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		LogLevel:   defaultIfBlank(envConfig.LogLevel, flagsConfig.LogLevel),
		GinMode:    defaultIfBlank(envConfig.GinMode, flagsConfig.GinMode),
	}
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
