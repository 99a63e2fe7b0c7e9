// Package plan resolves a manifest against a platform profile into an
// ordered, deduplicated dependency plan.
package plan

import (
	"github.com/Masterminds/semver/v3"
	"github.com/gammazero/toposort"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/logging"
	"github.com/arthur-debert/sysup/pkg/manifest"
	"github.com/arthur-debert/sysup/pkg/types"
)

// candidate tracks the winning entry for one dependency name while
// duplicates are resolved.
type candidate struct {
	spec        types.DependencySpec
	specificity int
	index       int
}

// Build filters the manifest down to entries matching the profile,
// resolves duplicate names, validates ordering constraints and
// returns the plan in declaration order with `after` constraints
// honored.
func Build(m *manifest.Manifest, profile types.PlatformProfile) (types.DependencyPlan, error) {
	logger := logging.GetLogger("plan")

	chosen := make(map[string]*candidate)
	var order []string

	for _, entry := range m.Dependencies {
		if !entry.Platform.Matches(profile) {
			continue
		}

		spec := entry.Spec()
		specificity := entry.Platform.Specificity()

		existing, ok := chosen[spec.Name]
		if !ok {
			chosen[spec.Name] = &candidate{spec: spec, specificity: specificity, index: len(order)}
			order = append(order, spec.Name)
			continue
		}

		switch {
		case specificity > existing.specificity:
			// A platform-filtered entry overrides a generic one.
			existing.spec = spec
			existing.specificity = specificity
		case specificity < existing.specificity:
			// Less specific duplicate loses outright.
		default:
			merged, err := merge(existing.spec, spec)
			if err != nil {
				return types.DependencyPlan{}, err
			}
			existing.spec = merged
		}
	}

	specs := make([]types.DependencySpec, 0, len(order))
	for _, name := range order {
		specs = append(specs, chosen[name].spec)
	}

	if err := validateConstraints(specs); err != nil {
		return types.DependencyPlan{}, err
	}

	ordered, err := sortSpecs(specs)
	if err != nil {
		return types.DependencyPlan{}, err
	}

	logger.Debug().
		Int("entries", len(m.Dependencies)).
		Int("planned", len(ordered)).
		Str("profile", profile.String()).
		Msg("Plan built")

	return types.DependencyPlan{Profile: profile, Specs: ordered}, nil
}

// merge combines two equally specific entries for the same name. A
// strategy mismatch is a configuration error; otherwise the higher
// minimum version and the union of constraints win.
func merge(a, b types.DependencySpec) (types.DependencySpec, error) {
	if a.Strategy != b.Strategy {
		return types.DependencySpec{}, errors.Newf(errors.ErrConflictingSpec,
			"dependency %q declared with conflicting strategies %q and %q",
			a.Name, a.Strategy, b.Strategy)
	}

	out := a
	out.MinVersion = maxVersion(a.MinVersion, b.MinVersion)
	out.After = unionStrings(a.After, b.After)
	if out.Source == nil {
		out.Source = b.Source
	}
	if out.Binary == nil {
		out.Binary = b.Binary
	}
	out.Exports = append(out.Exports, b.Exports...)
	out.PostInstall = append(out.PostInstall, b.PostInstall...)
	return out, nil
}

func maxVersion(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	av, errA := semver.NewVersion(a)
	bv, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		// Validation upstream makes this unreachable; keep the later one.
		return b
	}
	if av.LessThan(bv) {
		return b
	}
	return a
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string(nil), a...)
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// validateConstraints checks that every `after` reference names a spec
// present in the plan.
func validateConstraints(specs []types.DependencySpec) error {
	names := make(map[string]bool, len(specs))
	for _, s := range specs {
		names[s.Name] = true
	}
	for _, s := range specs {
		for _, dep := range s.After {
			if !names[dep] {
				return errors.Newf(errors.ErrUnknownDependency,
					"dependency %q is ordered after %q, which is not in the plan", s.Name, dep)
			}
		}
	}
	return nil
}

// sortSpecs orders specs by declaration order while honoring `after`
// constraints. Cycles are detected first, then a stable pass emits
// the earliest-declared spec whose predecessors are all emitted.
func sortSpecs(specs []types.DependencySpec) ([]types.DependencySpec, error) {
	var edges []toposort.Edge
	for _, s := range specs {
		for _, dep := range s.After {
			edges = append(edges, toposort.Edge{dep, s.Name})
		}
	}
	if len(edges) > 0 {
		if _, err := toposort.Toposort(edges); err != nil {
			return nil, errors.Wrap(err, errors.ErrCyclicDependency,
				"ordering constraints contain a cycle")
		}
	}

	byName := make(map[string]types.DependencySpec, len(specs))
	for _, s := range specs {
		byName[s.Name] = s
	}

	emitted := make(map[string]bool, len(specs))
	out := make([]types.DependencySpec, 0, len(specs))
	for len(out) < len(specs) {
		progressed := false
		for _, s := range specs {
			if emitted[s.Name] {
				continue
			}
			ready := true
			for _, dep := range s.After {
				if !emitted[dep] {
					ready = false
					break
				}
			}
			if ready {
				emitted[s.Name] = true
				out = append(out, byName[s.Name])
				progressed = true
			}
		}
		if !progressed {
			// Unreachable after the cycle check above.
			return nil, errors.New(errors.ErrCyclicDependency, "ordering constraints contain a cycle")
		}
	}
	return out, nil
}
