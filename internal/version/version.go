// Package version provides build and version information for the section twin.
package version

// Version is the current release version of the section twin core.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/railcontrol/sectiontwin/internal/version.Version=x.y.z"
var Version = "0.3.0"
