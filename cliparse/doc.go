// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns the server Config:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Load returns the same Config without flags or validation; the admin CLI
uses it and checks only what each command needs:

	cfg, err := cliparse.Load(configPath)

# Precedence

From lowest to highest:

	defaults → .env file → YAML config file → environment → CLI flags

The .env file is read with godotenv into a map; it is never copied into
the process environment, so the YAML file can override it.

# CLI Flags

	-config       YAML config file (or PREPSENSE_CONFIG)
	-p            Server port
	-d            Database URL
	-log-level    debug, info, warn, error
	-cache-path   SQLite cache file
	-user-salt    User key salt
	-admin-key    Admin key

# Environment Variables

	PORT, DATABASE_URL, LOG_LEVEL
	USER_KEY_SALT, ADMIN_KEY
	CACHE_PATH, CACHE_TTL, CACHE_SWEEP_INTERVAL
	CACHE_MIN_HIT_RATE, CACHE_MAX_ERRORS
	OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL
	SPOONACULAR_API_KEY, SPOONACULAR_BASE_URL
	EXPIRING_WITHIN_DAYS, UNIT_OVERRIDES

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - USER_KEY_SALT must be provided

Provider keys are optional; the endpoints that need them answer 503 when
they are unset.
*/
package cliparse
