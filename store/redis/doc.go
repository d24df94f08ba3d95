// Package redis provides a Redis-backed session store built on go-redis.
//
// Each session record is stored as a JSON blob under "session:<handle>" with
// a TTL matching the record's expiry, so revoked-by-time sessions vanish from
// Redis without a reaper. A per-user set under "user_sessions:<userID>" indexes
// handles for bulk revocation; stale index members left behind by TTL expiry
// are pruned lazily on read.
//
// Partial updates run under an optimistic WATCH transaction so concurrent
// writers never interleave half-applied records.
//
// # Usage
//
//	client, err := redis.Connect(ctx, redis.Config{ConnectionURL: os.Getenv("REDIS_URL")})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	store := redis.New(client)
//	mgr, err := session.New(store, anonTokens)
package redis
