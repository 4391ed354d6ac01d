// Package guard re-runs route classification for pages that are already
// rendered.
//
// An Effect is keyed on (path, isAuthenticated). It classifies with the same
// routegate.Policy the server filter uses, and only when the key changes; a
// redirect is handed to the Navigator. Since the home and sign-up paths are
// public, an unauthenticated visitor sent home is never redirected again,
// and an authenticated visitor sent to the dashboard stays there.
//
//	e := guard.New(policy, navigator)
//	stop := e.Watch(container)
//	defer stop()
//	e.SetPath("/dashboard/orders")
package guard
