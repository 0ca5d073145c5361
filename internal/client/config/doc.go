// Package config loads runtime configuration for the API client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Environment variables, read with cleanenv.
//  4. Command-line flags, which override earlier values.
//
// Environment
//
//	API_URL               base URL of the REST API
//	API_PLATFORM          "android-emulator" rewrites a localhost URL to 10.0.2.2
//	API_REQUEST_TIMEOUT   per-call budget, e.g. "30s"
//	API_REFRESH_TIMEOUT   budget of one token refresh call, e.g. "10s"
//	API_TOKEN_DB          SQLite file holding the token pair
//	API_TOKEN_PASSPHRASE  seals tokens at rest when set
//	API_DEBUG             "true" appends raw transport errors and enables debug logs
//
// Supported flags
//
//	-a string     base URL
//	-p string     platform
//	-t duration   request timeout
//	-r duration   refresh timeout
//	-db string    token database path
//	-d            debug
//
// # JSON schema
//
// Durations use timex.Duration, so they may be strings like "3s" or integer
// nanoseconds:
//
//	{
//	  "api_url": "http://localhost:3000",
//	  "platform": "android-emulator",
//	  "request_timeout": "30s",
//	  "refresh_timeout": "10s",
//	  "token_db": "tokens.db",
//	  "debug": true
//	}
package config
