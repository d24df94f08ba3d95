// Package postgres provides a PostgreSQL-backed session store built on pgx.
//
// The store keeps one row per session in a sessions table, with the handle
// as primary key and the public/private payloads stored as JSONB. Partial
// updates are applied in a single UPDATE statement, so refreshes and data
// writes never require an explicit transaction.
//
// # Usage
//
//	cfg := postgres.Config{ConnectionString: os.Getenv("POSTGRES_URL")}
//	pool, err := postgres.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	if err := postgres.Migrate(ctx, pool); err != nil {
//		log.Fatal(err)
//	}
//
//	store := postgres.New(pool)
//	mgr, err := session.New(store, anonTokens)
//
// Schema migrations are embedded in the package and applied with goose;
// calling Migrate on every startup is safe.
package postgres
