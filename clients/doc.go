// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package clients talks to external recipe providers.

  - SpoonacularClient: recipe search by ingredients and recipe details
  - OpenAIClient: recipe ideas from a chat model through langchaingo

Both share Retry, which retries timeouts, 429 and 5xx responses with a
doubling backoff (3 attempts, 500ms first wait) and stops as soon as the
caller's context is cancelled.

A client without an API key returns ErrNotConfigured. Quota and rate
limit responses surface as ErrRateLimited once retries are spent.
*/
package clients
