// Package config loads typed configuration structs from environment
// variables, with an optional .env file for local development.
//
// Each consumer package declares its own config struct with `env` tags and
// defaults; nothing is shared through globals:
//
//	type Config struct {
//		MinTTLSeconds int  `env:"CACHE_TTL_MIN_SECONDS" envDefault:"30"`
//		FailOpen      bool `env:"FAIL_OPEN" envDefault:"false"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
package config
