// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Prepsense-admin runs maintenance tasks against the PrepSense database and
cache store.

It reads the same configuration as the server (.env, --config YAML file,
environment), so DATABASE_URL and CACHE_PATH usually need no flags.

Usage:

	prepsense-admin [--config file] [--database-url dsn] [--output table|json] <command>

Commands:

	migrate [--reset]                        Create the schema, optionally dropping it first
	import recipes <file.csv> [--dry-run]    Load recipes from CSV
	import usda <dir>                        Load a FoodData Central export with COPY
	seed [--email addr]                      Create a demo user, pantry and recipes
	pantry list --user <id>                  Show a user's pantry, soonest expiry first
	recipes list [--q text] [--limit n]      Search recipes by title
	health                                   Ping the database, count rows, open the cache
	cleanup [--expired-days n] [--dry-run]   Drop long-expired pantry items and old checked shopping items
	cache test [--cache-path file]           Run the cache guardrails

Imports hold an exclusive lock file in the temp directory so two imports
never run at once. Output is a table on a terminal and JSON otherwise.
*/
package main
