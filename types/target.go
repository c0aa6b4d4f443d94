package types

import (
	"fmt"
	"strings"
)

// Target selects which subset of the integration tests is run.
type Target string

const (
	TargetAll   Target = "all"
	TargetCI    Target = "ci"
	TargetSpec  Target = "spec"
	TargetShort Target = "short"
)

// String returns the string representation of the target
func (t Target) String() string {
	return string(t)
}

// IsValid checks if the target is one of the supported selectors
func (t Target) IsValid() bool {
	return t.BuildTarget() != ""
}

// BuildTarget returns the ninja target that runs this subset of tests.
// It returns an empty string for unknown targets.
func (t Target) BuildTarget() string {
	switch t {
	case TargetAll:
		return "run-all-integration-tests"
	case TargetCI:
		return "run-ci-integration-tests"
	case TargetSpec:
		return "run-spec-integration-tests"
	case TargetShort:
		return "run-short-integration-tests"
	}
	return ""
}

// ValidTargets returns all supported targets, in the order they are listed in help output.
func ValidTargets() []Target {
	return []Target{TargetAll, TargetCI, TargetSpec, TargetShort}
}

// ValidTargetNames returns the supported targets as strings.
func ValidTargetNames() []string {
	targets := ValidTargets()
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.String())
	}
	return names
}

// ParseTarget converts a CLI value into a Target.
func ParseTarget(value string) (Target, error) {
	t := Target(value)
	if !t.IsValid() {
		return "", fmt.Errorf("target must be one of: {%s}, got %q", strings.Join(ValidTargetNames(), ", "), value)
	}
	return t, nil
}
