// Package envpatch appends environment exports to shell profile
// files. Patching is idempotent: a variable already set anywhere in a
// file is never appended again, regardless of how its existing line
// is quoted or ordered.
package envpatch

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/logging"
	"github.com/arthur-debert/sysup/pkg/types"
)

// Patcher appends exports to profile files.
type Patcher struct {
	home string
}

// New creates a Patcher. home is used to expand ~/ in profile paths.
func New(home string) *Patcher {
	return &Patcher{home: home}
}

// Patch ensures every export appears in every profile file. Files are
// created when absent. Returns the number of lines actually appended.
func (p *Patcher) Patch(profileFiles []string, exports []types.Export) (int, error) {
	logger := logging.GetLogger("envpatch")
	appended := 0

	for _, file := range profileFiles {
		path := p.expand(file)
		n, err := p.patchFile(path, exports)
		if err != nil {
			return appended, err
		}
		if n > 0 {
			logger.Info().Str("file", path).Int("exports", n).Msg("Profile patched")
		}
		appended += n
	}
	return appended, nil
}

func (p *Patcher) patchFile(path string, exports []types.Export) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, errors.Wrapf(err, errors.ErrPatch, "failed to create directory for %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return 0, errors.Wrapf(err, errors.ErrPatch, "failed to read %s", path)
	}

	var missing []string
	for _, export := range exports {
		if setsVariable(string(content), export.Key) {
			continue
		}
		missing = append(missing, fmt.Sprintf("export %s=%q", export.Key, export.Value))
	}
	if len(missing) == 0 {
		return 0, nil
	}

	var b strings.Builder
	b.Write(content)
	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		b.WriteByte('\n')
	}
	for _, line := range missing {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return 0, errors.Wrapf(err, errors.ErrPatch, "failed to write %s", path)
	}
	return len(missing), nil
}

// setsVariable reports whether any line in content assigns the
// variable, with or without an export keyword. This is an existence
// check by name: prior lines may quote or order values differently
// and still count.
func setsVariable(content, key string) bool {
	pattern := regexp.MustCompile(`(?m)^\s*(export\s+)?` + regexp.QuoteMeta(key) + `=`)
	return pattern.MatchString(content)
}

func (p *Patcher) expand(path string) string {
	if strings.HasPrefix(path, "~/") && p.home != "" {
		return filepath.Join(p.home, path[2:])
	}
	return path
}
