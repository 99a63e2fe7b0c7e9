package adapter

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var versionToken = regexp.MustCompile(`\d+(\.\d+)*`)

// normalizeVersion strips package-manager decorations from a version
// string: a Debian epoch prefix ("1:2.71-3") and revision suffix, so
// what remains parses as a plain version.
func normalizeVersion(raw string) string {
	if i := strings.Index(raw, ":"); i >= 0 {
		raw = raw[i+1:]
	}
	if i := strings.IndexAny(raw, "-_+~"); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimSpace(raw)
}

// extractVersion pulls the first version-looking token out of
// free-form tool output such as "autoconf (GNU Autoconf) 2.71".
func extractVersion(output string) string {
	return versionToken.FindString(output)
}

// versionSatisfies reports whether current meets the minimum. An
// empty minimum is always satisfied; an unparseable current version
// never is, which forces a reinstall rather than a silent pass.
func versionSatisfies(current, min string) bool {
	if min == "" {
		return true
	}
	minVer, err := semver.NewVersion(min)
	if err != nil {
		return false
	}
	curVer, err := semver.NewVersion(normalizeVersion(current))
	if err != nil {
		return false
	}
	return !curVer.LessThan(minVer)
}
