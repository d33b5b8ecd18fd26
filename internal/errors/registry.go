package errors

import (
	"sort"
	"sync"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://sprout.dev/docs/errors/"

var (
	registryMu sync.RWMutex

	// registry maps error codes to their templates.
	registry = map[string]ErrorTemplate{
		// Configuration (E100-E119)
		"E100": {
			Category: CategoryConfig,
			Message:  "Configuration file not found",
			Detail:   "sprout looks for sprout.json, sprout.yaml or sprout.yml in the working directory unless --config names a file.",
			DocURL:   docBase + "E100",
		},
		"E101": {
			Category: CategoryConfig,
			Message:  "Invalid configuration file",
			Detail:   "The configuration file could not be parsed.",
			DocURL:   docBase + "E101",
		},
		"E102": {
			Category: CategoryConfig,
			Message:  "Invalid configuration value",
			Detail:   "A configuration value is out of range.",
			DocURL:   docBase + "E102",
		},
		"E103": {
			Category: CategoryConfig,
			Message:  "Unsupported configuration format",
			Detail:   "Only .json, .yaml and .yml files are supported.",
			DocURL:   docBase + "E103",
		},

		// Transport (E120-E139)
		"E120": {
			Category: CategoryTransport,
			Message:  "Server failed",
			Detail:   "The HTTP server stopped with an error.",
			DocURL:   docBase + "E120",
		},
		"E121": {
			Category: CategoryTransport,
			Message:  "Address already in use",
			Detail:   "Another process is listening on the requested address.",
			DocURL:   docBase + "E121",
		},

		// Protocol (E140-E159)
		"E140": {
			Category: CategoryProtocol,
			Message:  "Invalid patch",
			Detail:   "The data is not a valid encoded patch.",
			DocURL:   docBase + "E140",
		},
		"E141": {
			Category: CategoryProtocol,
			Message:  "Invalid frame",
			Detail:   "The data is not a valid protocol frame.",
			DocURL:   docBase + "E141",
		},

		// Archive (E160-E179)
		"E160": {
			Category: CategoryArchive,
			Message:  "Archive upload failed",
			Detail:   "A patch could not be stored in the configured bucket.",
			DocURL:   docBase + "E160",
		},
		"E161": {
			Category: CategoryArchive,
			Message:  "Archive flush timed out",
			Detail:   "Queued patches were still being uploaded when the server shut down.",
			DocURL:   docBase + "E161",
		},

		// CLI (E180-E199)
		"E180": {
			Category: CategoryCLI,
			Message:  "Cannot read input file",
			DocURL:   docBase + "E180",
		},
	}
)

// GetAllCodes returns all registered error codes in order.
func GetAllCodes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	t, ok := registry[code]
	return t, ok
}

// Register adds or replaces an error template.
func Register(code string, template ErrorTemplate) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = template
}
