package errors

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Construction Errors (L001-L099)
	// ============================================

	"L001": {
		Category: CategoryConstruction,
		Message:  "Invalid ref",
		Detail:   "The ref prop must be a vnode.RefFunc, a func(any) or a *vnode.RefObject.",
	},
	"L002": {
		Category: CategoryConstruction,
		Message:  "Missing component name",
		Detail:   "Component types and foreign components must declare a non-empty Name.",
	},
	"L003": {
		Category: CategoryConstruction,
		Message:  "Registration conflict",
		Detail:   "The tag name is already registered with a different definition.",
	},
	"L004": {
		Category: CategoryConstruction,
		Message:  "Malformed child",
		Detail:   "Children must be descriptions, primitive values, live instances or slices of those.",
	},
	"L005": {
		Category: CategoryConstruction,
		Message:  "Unknown tag type",
		Detail:   "A tag must be a string, a component, a lazy component, a foreign component or a thunk returning one.",
	},
	"L006": {
		Category: CategoryConstruction,
		Message:  "Thunk failed",
		Detail:   "A thunk tag returned an error while being resolved.",
	},

	// ============================================
	// Runtime Errors (L100-L199)
	// ============================================

	"L100": {
		Category: CategoryRuntime,
		Message:  "Render failed",
		Detail:   "A component's Render panicked or its subtree could not be materialized.",
	},
	"L101": {
		Category: CategoryRuntime,
		Message:  "Effect failed",
		Detail:   "An effect or its cleanup panicked.",
	},
	"L102": {
		Category: CategoryRuntime,
		Message:  "Render loop",
		Detail:   "A component kept invalidating itself while rendering. Move state updates into effects or event handlers.",
	},
	"L103": {
		Category: CategoryRuntime,
		Message:  "Teardown failed",
		Detail:   "A cleanup or will-unmount hook panicked. Teardown continued with the remaining hooks.",
	},
	"L104": {
		Category: CategoryRuntime,
		Message:  "Lazy component failed",
		Detail:   "The loader or asynchronous state initializer was rejected.",
	},
	"L105": {
		Category: CategoryRuntime,
		Message:  "Foreign render failed",
		Detail:   "The foreign runtime returned an error while rendering.",
	},

	// ============================================
	// Configuration Errors (L200-L299)
	// ============================================

	"L200": {
		Category: CategoryConfig,
		Message:  "Invalid loom.yaml",
		Detail:   "The configuration file is malformed.",
	},
	"L201": {
		Category: CategoryConfig,
		Message:  "Invalid environment configuration",
		Detail:   "A LOOM_* environment variable could not be parsed.",
	},
	"L202": {
		Category: CategoryConfig,
		Message:  "Invalid timeout",
		Detail:   "Timeouts must be non-negative durations.",
	},

	// ============================================
	// Protocol Errors (L300-L399)
	// ============================================

	"L300": {
		Category: CategoryProtocol,
		Message:  "Invalid frame",
		Detail:   "The commit record could not be decoded.",
	},
	"L301": {
		Category: CategoryProtocol,
		Message:  "Protocol version mismatch",
		Detail:   "The frame was written by an incompatible protocol version.",
	},

	// ============================================
	// CLI Errors (L400-L499)
	// ============================================

	"L400": {
		Category: CategoryCLI,
		Message:  "Invalid fixture",
		Detail:   "The YAML tree fixture could not be read.",
	},
	"L401": {
		Category: CategoryCLI,
		Message:  "Watch failed",
		Detail:   "The file watcher could not be started.",
	},
}

// Codes returns all registered error codes.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// Lookup returns the template for an error code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template Template) {
	registry[code] = template
}
