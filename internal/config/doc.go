// Package config loads the dashboard's runtime configuration.
//
// Settings come from three layers, later layers winning:
//
//  1. Built-in defaults (New)
//  2. dashboard.yaml, if present
//  3. Environment variables, including any loaded from .env
//
// # Configuration File Structure
//
//	http:
//	  addr: ":3000"
//	  secure_cookies: true
//	backend:
//	  base_url: https://megha-backend.exionstech.workers.dev/api
//	  timeout: 10s
//	auth:
//	  check_expiry: true
//	  revalidate: false
//	storage:
//	  driver: redis
//	  redis_addr: localhost:6379
//	assets:
//	  dir: public
//	log:
//	  level: info
//	  format: json
//
// # Environment
//
// PORT sets the listen port. DASHBOARD_* variables override single keys,
// e.g. DASHBOARD_STORAGE_DRIVER or DASHBOARD_BACKEND_URL; see applyEnv.
//
// # Usage
//
//	cfg, err := config.Load(config.ConfigFileName)
//	if err != nil {
//	    errors.PrintError(os.Stderr, err)
//	    os.Exit(1)
//	}
package config
