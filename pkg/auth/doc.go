// Package auth holds the dashboard's authentication state.
//
// Each browser (identified by its client id) gets one Container with two
// states, Unauthenticated and Authenticated. The invariant
// IsAuthenticated == (Token != "") holds for every Session value the
// container hands out.
//
//	c := registry.Get(clientID)
//	sess, err := c.Restore(ctx, w) // first mount only
//	if !sess.IsAuthenticated {
//	    // render the sign-in view
//	}
//
// Login and Logout persist through session.Store, update the in-memory
// state and notify subscribers. Logout also asks the container's Navigator
// to go to the login path.
//
// # Restore and validation
//
// Restore trusts a stored token on presence. Validators can be attached
// with WithValidators to discard tokens on restore: ExpiryCheck rejects
// JWT-shaped tokens whose exp claim has passed, and a ValidatorFunc can ask
// the backend. Only ErrSessionExpired and ErrSessionRevoked discard the
// token; any other validator error is logged and the token is kept.
package auth
