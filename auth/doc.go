// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides authentication and ID generation utilities.

# User Keys

User API keys use HMAC-SHA256 to create deterministic, verifiable keys:

	key := auth.GenerateUserKey(userID, salt)
	err := auth.ValidateUserKey(userID, key, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same user ID and salt always produce the same key. This allows validation
without storing the key in the database. Rotating USER_KEY_SALT invalidates
every issued key.

# Admin Key

Admin endpoints compare X-Admin-Key against the configured ADMIN_KEY in
constant time. When ADMIN_KEY is unset, ValidateAdminKey always returns
ErrAdminDisabled.

# IDs

  - GenerateID(n): n random bytes, hex encoded (pantry items, recipes)
  - NewUserID: UUID v4 (users)
  - NewSortableID: lower-case ULID (shopping list items)

# Errors

	ErrInvalidUserKey - key does not match user ID
	ErrInvalidUserID  - user ID is not a UUID
	ErrInvalidAdmin   - admin key mismatch
	ErrAdminDisabled  - no admin key configured
*/
package auth
