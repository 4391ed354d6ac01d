// Package authmw provides the server-side route filter.
//
// The filter runs before page and API handlers. For every path the
// routegate.Matcher selects, it reads the token cookie and applies the same
// routegate.Policy the client guard uses: protected paths without a token
// are redirected home with from=<path>, and the home and sign-up paths are
// redirected to the dashboard when a token is present.
//
//	filter := authmw.New(authmw.WithPolicy(policy))
//	r.Use(filter.Middleware())
//
// The filter only checks for the cookie's presence. It never validates the
// token.
package authmw
