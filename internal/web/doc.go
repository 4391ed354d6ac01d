// Package web serves the dashboard over HTTP.
//
// The router is split in two layers. Infrastructure routes (/healthz,
// /metrics, /ws/guard and the asset prefix) are served directly. Pages and
// the JSON API sit behind the route filter, which redirects visitors
// without a session cookie away from protected paths before any handler
// runs.
//
// Page handlers then restore the client's auth container and run the same
// classification again (the render-time check), so a cookie that no longer
// matches durable storage still cannot reach a protected page. Open pages
// keep a websocket to /ws/guard; the server runs the client guard for the
// path the browser reports and pushes navigations when the session changes.
package web
