package utils

import (
	"github.com/Masterminds/semver/v3"
)

// Version is the tracker release, set at build time with
// -ldflags "-X github.com/benmeehan/bus-tracker/internal/utils.Version=1.2.3".
var Version = "0.1.0"

// UserAgent returns the User-Agent sent with every publish request.
// An unparsable build version is reported as a development build.
func UserAgent() string {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return "bus-tracker/0.0.0-dev"
	}
	return "bus-tracker/" + v.String()
}
