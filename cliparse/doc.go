// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded first if it exists.

# CLI Flags and Environment Variables

	-p                PORT             Server port (default: 3318)
	-d                DATABASE_URL     PostgreSQL URL; empty selects SQLite
	-t                DATABASE_TYPE    sqlite or postgres (inferred from -d)
	-sqlite-path      SQLITE_PATH      Embedded store (default: instance/voting.db)
	-redis-url        REDIS_URL        Shared rate-limit store (optional)
	-upload-dir       UPLOAD_DIR       Candidate photos (default: instance/uploads)
	-secret-key       SECRET_KEY       Keys the rate-limit IP hash (required)
	-admin-token      ADMIN_TOKEN      Shared admin bearer token (required)
	-token-format     TOKEN_FORMAT     numeric (8 digits) or alphanumeric (16)
	-voter-id-prefix  VOTER_ID_PREFIX  Generated voter ID prefix (default: VTR)
	-rate-limit       RATE_LIMIT       Vote attempts per window (default: 10)
	-rate-window      RATE_WINDOW      Window length (default: 5m)
	-seed             SEED_FILE        YAML positions/candidates seed
	-log-level        LOG_LEVEL        debug, info, warn, error

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if SECRET_KEY or ADMIN_TOKEN is missing, if the
token format is unknown, or if postgres is selected without a URL.
*/
package cliparse
