// Package settings provides build metadata and per-run settings shared by the
// crmx commands.
package settings

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "crmx"

// VersionInformation is populated at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build.
type VersionInfo struct {
	Commit       string
	BuildVersion string
	BuildTime    string
}

// Run holds the settings for a single execution of the CLI.
type Run struct {
	MinLogLevel int8
	NoColor     bool
	Output      string
	ConfigFile  string
	EnvFile     string
	MetricsAddr string
	// Interactive is true when the terminal UI owns the screen.
	Interactive bool
}

// NewCliParams returns the defaults used before flags are parsed.
func NewCliParams() *Run {
	return &Run{
		MinLogLevel: 0,
		Output:      "table",
	}
}
