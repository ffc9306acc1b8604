// Package version exposes the banana-slides release version.
package version

import (
	_ "embed"
	"strings"
)

// raw is the VERSION file content, embedded at build time so the
// binary and the repo can never disagree.
//
//go:embed VERSION
var raw string

// Get returns the release version string, e.g. "0.1.0".
func Get() string {
	return strings.TrimSpace(raw)
}
