// Package config handles configuration loading for patter-server.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PATTER_CONFIG environment variable
//  2. ./config.yaml (current directory)
//  3. ~/.config/patter/server.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${PATTER_JWT_SECRET}"
//
// Syntax: ${VAR_NAME}
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	auth:
//	  token_ttl: "24h"
//	  otp_ttl: "5m"
//
// Supported units: ns, us, ms, s, m, h
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "0.0.0.0:8080"   # API and live channel
//
// Database:
//
//	database:
//	  path: "/var/lib/patter/patter.db"
//
// Authentication:
//
//	auth:
//	  jwt_secret: "${PATTER_JWT_SECRET}"  # Required
//	  token_ttl: "24h"
//	  otp_ttl: "5m"
//	  dev_otp_code: ""                    # Fixed login code for local dev
//
// Browser clients:
//
//	cors:
//	  allowed_origins:
//	    - "http://localhost:3000"
//
// Startup seeding:
//
//	seed:
//	  path: "./seed.toml"  # Optional TOML file of users to create
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Usage
//
// Load configuration from a path:
//
//	cfg, err := config.Load("/etc/patter/server.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
