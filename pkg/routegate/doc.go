// Package routegate classifies request paths as public or protected and
// decides whether a visitor should be redirected.
//
// The same decision function backs both the server-side request filter
// (package authmw) and the live client guard (package guard), so the two
// can never disagree about which paths require a session:
//
//	action := routegate.Default().Classify("/dashboard/orders", false)
//	// action.Kind == routegate.RedirectHome
//	// action.Location == "/?from=%2Fdashboard%2Forders"
//
// A path is public when it equals an allow-list entry or starts with the
// entry followed by "/". The root entry "/" therefore only matches "/"
// itself.
//
// Matcher decides which requests the server-side filter sees at all:
// framework-internal assets and static files are skipped, while API and
// dashboard paths are always filtered.
package routegate
