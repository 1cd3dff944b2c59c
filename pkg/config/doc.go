// Package config loads typed configuration structs from environment
// variables with struct tags, caching each type per process so all
// components share one parsed configuration.
//
// # Usage
//
//	import "github.com/stackform/bizkit/pkg/config"
//
//	type DatabaseConfig struct {
//		DSN string `env:"DATABASE_URL,required"`
//	}
//
//	var dbCfg DatabaseConfig
//	config.MustLoad(&dbCfg)
//
// A .env file in the working directory is loaded once per process before
// the first parse, which keeps local development and tests simple without
// affecting deployed environments.
package config
