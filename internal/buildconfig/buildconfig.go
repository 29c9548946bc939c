// Package buildconfig exposes version metadata stamped at link time:
//
//	go build -ldflags "-X .../buildconfig.version=v1.2.0 -X .../buildconfig.commit=$(git rev-parse --short HEAD)"
package buildconfig

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
)

// Version returns the stamped release version, "dev" for local builds.
func Version() string {
	return version
}

// Commit returns the stamped git commit hash.
func Commit() string {
	return commit
}

// String renders the version and commit as a single log-friendly token.
func String() string {
	return fmt.Sprintf("%s (%s)", version, commit)
}

// VersionInfo returns the metadata as a map for JSON responses.
func VersionInfo() map[string]string {
	return map[string]string{
		"version": version,
		"commit":  commit,
	}
}
