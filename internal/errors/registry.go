package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E199)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Config file unreadable",
		Detail:   "The configuration file exists but could not be read.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid config syntax",
		Detail:   "The configuration file is not valid YAML or has fields of the wrong type.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid listen address",
		Detail:   "The HTTP listen address must be host:port or :port.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid backend URL",
		Detail:   "The backend base URL must be an absolute http or https URL.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Unknown storage driver",
		Detail:   "The storage driver selects where durable tokens are kept.",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Missing storage connection",
		Detail:   "The selected storage driver needs a DSN or address to connect to.",
	},
	"E106": {
		Category: CategoryConfig,
		Message:  "Invalid route path",
		Detail:   "Route paths must be absolute and start with a single '/'.",
	},
	"E107": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
		Detail:   "Durations must not be negative.",
	},
	"E108": {
		Category: CategoryConfig,
		Message:  "Invalid log setting",
		Detail:   "The log level must be debug, info, warn or error, and the format text or json.",
	},
	"E109": {
		Category: CategoryConfig,
		Message:  "Invalid assets source",
		Detail:   "Assets are served from a local directory or an S3 bucket, not both.",
	},
	"E110": {
		Category: CategoryConfig,
		Message:  "Invalid cookie lifetime",
		Detail:   "The session cookie max age must be a positive number of seconds.",
	},
	"E111": {
		Category: CategoryConfig,
		Message:  "Invalid storage table",
		Detail:   "The SQL table name is used as an identifier in every query.",
	},

	// ============================================
	// Storage Errors (E200-E299)
	// ============================================

	"E200": {
		Category: CategoryStorage,
		Message:  "Storage connection failed",
		Detail:   "The durable token store could not be reached.",
	},
	"E201": {
		Category: CategoryStorage,
		Message:  "Storage schema setup failed",
		Detail:   "The token table could not be created.",
	},
	"E202": {
		Category: CategoryStorage,
		Message:  "Assets source unavailable",
		Detail:   "The static asset source or its manifest could not be opened.",
	},

	// ============================================
	// Backend Errors (E300-E399)
	// ============================================

	"E300": {
		Category: CategoryBackend,
		Message:  "Backend unreachable",
		Detail:   "The authentication backend did not answer.",
	},
	"E301": {
		Category: CategoryBackend,
		Message:  "Backend rejected request",
		Detail:   "The authentication backend answered with a failure.",
	},

	// ============================================
	// CLI Errors (E400-E499)
	// ============================================

	"E400": {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
		Detail:   "The command was called with missing or malformed arguments.",
	},
	"E401": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error.",
	},
}

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
