// Package session persists the dashboard bearer token.
//
// A session has two persistent slots written from one call:
//
//   - durable storage: a tokenstore.Store entry under the key "token",
//     scoped by the browser's client id
//   - the "token" cookie (Path=/, Max-Age=604800) that the route filter reads
//
// The Store does not encrypt, rotate or refresh tokens. A token lives until
// it is cleared or the cookie expires; the two slots are not synchronized on
// expiry.
//
// # Partial failure
//
// Set writes durable storage first. If that write fails the cookie is not
// mirrored and the error is returned, so the filter never sees a token the
// store could not persist. Clear always expires the cookie and returns any
// durable-remove error afterwards.
//
//	store := session.NewStore(tokenstore.NewMemoryStore())
//	clientID := store.ClientID(w, r)
//	if err := store.Set(ctx, w, clientID, token); err != nil {
//	    // durable write failed, cookie untouched
//	}
package session
