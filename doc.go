// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the PrepSense API server.

PrepSense tracks what is in a kitchen pantry, recommends recipes that use
it (favoring items about to expire), cooks recipes against the pantry and
keeps a shopping list of what is missing.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=postgres://... USER_KEY_SALT=... go run .

Or with flags:

	go run . -p 8001 -d "postgres://..." --user-salt dev-salt

A .env file in the working directory is read first, and --config (or
PREPSENSE_CONFIG) names an optional YAML file. Precedence, lowest first:
defaults, .env, YAML, environment, flags.

# Configuration

Required settings:

  - DATABASE_URL (-d): PostgreSQL connection string
  - USER_KEY_SALT (--user-salt): Secret for user API key HMAC

Optional settings:

  - PORT (-p): Server port (default: 8001)
  - LOG_LEVEL (--log-level): debug, info, warn or error
  - ADMIN_KEY (--admin-key): Enables /admin endpoints
  - CACHE_PATH (--cache-path): SQLite cache file; in-memory when empty
  - CACHE_TTL, CACHE_SWEEP_INTERVAL, CACHE_MIN_HIT_RATE, CACHE_MAX_ERRORS
  - SPOONACULAR_API_KEY, SPOONACULAR_BASE_URL
  - OPENAI_API_KEY, OPENAI_MODEL, OPENAI_BASE_URL
  - EXPIRING_WITHIN_DAYS: Horizon for "expiring soon" (default: 3)
  - UNIT_OVERRIDES: YAML file of extra densities, unit weights, categories

Logs are text on a terminal and JSON otherwise.

# Architecture

  - handlers: HTTP request handlers
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, authentication, JSON helpers
  - models: Request, response and domain types
  - auth: IDs and API key generation and validation
  - db: Connection, schema and Postgres error helpers
  - cliparse: Configuration and logger setup
  - units: Unit normalization and conversion
  - instructions: Grouping recipe steps into phases
  - recommend: Pantry-based recipe scoring
  - cache: TTL cache with SQLite or memory storage
  - clients: Spoonacular and OpenAI clients
  - importer: Recipe CSV and USDA FoodData Central imports

Bulk imports and maintenance run through cmd/prepsense-admin.

See package documentation for each component.
*/
package main
