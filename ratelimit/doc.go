// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ratelimit limits ballot submission attempts per client.

A Limiter counts attempts in a trailing window (default 10 per 5 minutes).
Allowed attempts are recorded before the ballot is validated, so a stream of
bad submissions uses up the allowance just like good ones.

	limiter := ratelimit.New(ratelimit.NewMemoryStore(), cfg.RateLimit, cfg.RateWindow)
	res, err := limiter.Allow(ctx, auth.HashIP(ip, cfg.SecretKey))
	if !res.Allowed {
		// 429, Retry-After: res.RetryAfter
	}

# Stores

MemoryStore keeps timestamps in a mutex-guarded map and is exact within one
process. RedisStore keeps one sorted set per key with a TTL equal to the
window, so several server instances share the same counts:

	client, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
	store := ratelimit.NewRedisStore(client, "vote-attempts:")

The Redis variant checks and records in two round trips, so concurrent
attempts from one client can overshoot the limit slightly.
*/
package ratelimit
