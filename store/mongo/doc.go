// Package mongo provides a MongoDB-backed session store.
//
// Sessions live in a single collection keyed by the session handle. A TTL
// index on expires_at lets the server reap expired records, and a compound
// user index supports bulk revocation. Partial updates map directly to a
// single $set, so they are atomic per document.
//
// # Usage
//
//	client, err := mongo.Connect(ctx, mongo.Config{ConnectionURL: os.Getenv("MONGODB_URL")})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Disconnect(ctx)
//
//	store := mongo.New(client.Database("myapp"))
//	if err := store.EnsureIndexes(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	mgr, err := session.New(store, anonTokens)
package mongo
