// Package assets serves the dashboard's static files and resolves
// fingerprinted asset names.
//
// Files come from a Source: a local directory (or any fs.FS, such as an
// embedded bundle) or an S3 bucket. Handler serves a Source over HTTP
// and rejects any name that could escape it:
//
//	src := assets.NewDirSource("public")
//	r.Handle("/_assets/*", http.StripPrefix("/_assets/", assets.Handler(src)))
//
// A build step may emit manifest.json mapping source names to their
// fingerprinted versions:
//
//	{
//	  "dashboard.js": "dashboard.a1b2c3d4.min.js",
//	  "styles.css": "styles.e5f6g7h8.css"
//	}
//
// Resolver applies the manifest and the public prefix when rendering pages:
//
//	manifest, _ := assets.LoadFrom(ctx, src, "manifest.json")
//	resolver := assets.NewResolver(manifest, "/_assets/")
//	resolver.Asset("dashboard.js") // "/_assets/dashboard.a1b2c3d4.min.js"
package assets
