// Package middleware provides the dashboard's HTTP observability middleware.
//
// # Prometheus Metrics
//
// Metrics registers the dashboard's collectors and records HTTP traffic:
//   - dashboard_http_requests_total{route,status}
//   - dashboard_http_request_duration_seconds{route}
//   - dashboard_route_decisions_total{source,action}
//   - dashboard_auth_submissions_total{form,outcome}
//   - dashboard_live_connections
//   - dashboard_websocket_errors_total{type}
//
// The route label is the chi route pattern, never the raw path, so the
// label set stays bounded.
//
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r.Use(m.Middleware())
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
// # OpenTelemetry
//
// Tracing starts a server span per request, continuing any trace carried
// in the request headers. Downstream calls made with r.Context() inherit
// the span.
//
//	r.Use(middleware.Tracing(middleware.WithTracerName("hub-dashboard")))
package middleware
