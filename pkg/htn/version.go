// Package htn provides the runtime of an HTN (hierarchical task network)
// planner: terms and unification, the lazy precondition engine, the world
// state with backtrack-safe undo, and the domain tables a compiled domain
// populates.
//
// Version: 0.1.0
//
// The package offers:
//   - Unification over fixed-size per-scope bindings
//   - Lazy, resettable enumeration of precondition satisfiers
//   - Negation as failure, universal quantification and sorted preconditions
//   - Axioms evaluated on demand during precondition matching
//   - Operator effects with protections and exact-order undo
package htn

import "runtime"

// Version represents the current version of the gokanplan runtime.
const Version = "0.1.0"

// VersionInfo provides detailed version information.
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	GitCommit string `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty" yaml:"build_date,omitempty"`
}

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}

// GetVersionInfo returns detailed version information.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
	}
}
