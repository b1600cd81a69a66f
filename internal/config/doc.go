// Package config provides centralized configuration management for the
// loan dashboard and its CLI.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority), including a .env file
//	2. The YAML configuration file
//	3. Default values (lowest priority)
//
// The config file is taken from LOADDASH_CONFIG, otherwise the first of
// config.yaml, configs/config.yaml and ../configs/config.yaml that exists.
//
// # Environment Variables
//
// All environment variables follow the pattern LOADDASH_<SECTION>_<KEY>:
//
//	LOADDASH_SERVER_PORT=8080
//	LOADDASH_DATASET_KIND=xlsx
//	LOADDASH_DATASET_SOURCE_PATH=data/donnees_nettoyees.xlsx
//	LOADDASH_LOGGING_LEVEL=debug
//
// # Path Management
//
// GetPaths resolves the data, export and log directories against a base
// directory:
//
//	paths, err := config.GetPaths(cfg.Paths)
//	source := paths.Resolve(cfg.Dataset.Path)
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
