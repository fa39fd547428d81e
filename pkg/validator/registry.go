package validator

// moduleStatus describes one entry of the deprecated-module registry.
type moduleStatus struct {
	Replacement string
	Removed     bool // removed/unsupported modules are errors, not warnings
}

// dangerousFunctions are flagged as WARNING wherever they are called. "open"
// is exempted for read-only modes.
var dangerousFunctions = []string{"eval", "exec", "compile", "__import__", "open"}

// deprecatedModules is checked against every import of the validated source.
var deprecatedModules = map[string]moduleStatus{
	"imp":       {Replacement: "importlib"},
	"optparse":  {Replacement: "argparse"},
	"distutils": {Replacement: "setuptools", Removed: true},
	"asyncore":  {Replacement: "asyncio", Removed: true},
	"asynchat":  {Replacement: "asyncio", Removed: true},
	"cgi":       {Replacement: "urllib.parse", Removed: true},
	"telnetlib": {Removed: true},
}
