// Package version provides the FlashSim version string.
// The values are set at build time via -ldflags.
package version

import "fmt"

// Version is the FlashSim release.
// Override at build time: go build -ldflags "-X github.com/flashdb/flashsim/internal/version.Version=0.3.0"
var Version = "0.1.0"

// BuildTime is the build timestamp.
// Override at build time: go build -ldflags "-X github.com/flashdb/flashsim/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var BuildTime = "unknown"

// String formats the version for banners and --version output.
func String() string {
	return fmt.Sprintf("flashsim %s (built %s)", Version, BuildTime)
}
