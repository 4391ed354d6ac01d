// Package errors provides coded, actionable errors for the dashboard's
// configuration, storage and backend wiring.
//
// Each code maps to a registered template with a short message, a longer
// detail and a category:
//   - E1xx config: the configuration file or environment is invalid
//   - E2xx storage: the durable token store could not be reached or prepared
//   - E3xx backend: the authentication backend is misconfigured or unreachable
//   - E4xx cli: the command line was used incorrectly
//
// # Usage
//
//	err := errors.New("E104").
//	    WithKey("storage.driver").
//	    WithSuggestion(`Use one of "memory", "redis", "postgres" or "sqlite".`)
//
//	errors.PrintError(os.Stderr, err)
//	// ERROR E104: Unknown storage driver
//	//
//	//   storage.driver
//	//
//	//   The storage driver selects where durable tokens are kept.
//	//
//	//   Hint: Use one of "memory", "redis", "postgres" or "sqlite".
//
// Request-path failures (rejected credentials, transport errors) are not
// coded errors; they are typed errors in their own packages.
package errors
