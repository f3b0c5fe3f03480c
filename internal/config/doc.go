// Package config provides centralized configuration management for
// vtschooldata. It loads settings from defaults, an optional YAML file and
// environment variables, validates them, and resolves on-disk paths.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//  1. Environment variables (highest priority)
//  2. YAML configuration file
//  3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern VTSD_<SECTION>_<KEY>:
//
//	VTSD_SERVER_PORT=8080
//	VTSD_CACHE_DRIVER=sqlite
//	VTSD_CACHE_RAW_MAX_AGE=12h
//	VTSD_SOURCE_ENROLLMENT_FILE_URL=https://...
//	VTSD_LOGGING_LEVEL=debug
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
