// Package tokenstore provides durable per-client key/value storage for the
// dashboard.
//
// It plays the role browser local storage plays for a single-page app: a
// value written under a client id survives restarts of the visitor's
// browser session and outlives the short-lived token cookie. Entries do not
// expire unless a non-zero expiry is passed to Set.
//
// Three backends are provided:
//
//	store := tokenstore.NewMemoryStore()            // single process
//	store := tokenstore.NewRedisStore(redisClient)  // shared between replicas
//	store := tokenstore.NewSQLStore(db)             // PostgreSQL or SQLite
//
// All implementations are safe for concurrent use.
package tokenstore
