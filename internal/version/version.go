// Package version holds the release tag stamped into binaries.
package version

// Version is set at build time via:
//
//	-ldflags "-X github.com/phpmtseed/phpmtseed/internal/version.Version=v1.0.0"
//
// Untagged builds report "dev" and never see update notices.
var Version = "dev"

// UserAgent identifies this build in outbound HTTP requests.
func UserAgent() string {
	return "php-mt-seed/" + Version
}
