// Package backend is the HTTP client for the remote authentication backend.
//
// The backend exposes:
//
//	POST <base>/auth/login     {email, password}         -> {success, message?, token?}
//	POST <base>/auth/register  {id, name, email, password} -> {success, message?}
//	GET  <base>/user           Authorization: Bearer <token>
//
// A response whose success flag is false is not a Go error; callers inspect
// the response (or its Err method). Network failures, non-2xx statuses and
// malformed bodies are reported as *TransportError. Nothing is retried, and
// no deadline is applied unless WithTimeout is set.
package backend
