package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"stackguard/internal/env"
)

/**
 * Liveness probe specification
 * @property {string} url - HTTP endpoint checked each cycle
 * @property {[]int} accept_status - Status codes counted as healthy (default [200])
 * @property {int} port - TCP port probed when no URL is configured
 */
type ProbeSpec struct {
	URL          string `json:"url,omitempty"`
	AcceptStatus []int  `json:"accept_status,omitempty"`
	Port         int    `json:"port,omitempty"`
}

/**
 * Executable action (remediation or stop command)
 * @property {string} command - Command, may contain {{.Name}} template refs
 * @property {[]string} args - Command arguments, templated the same way
 */
type ActionSpec struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

/**
 * One monitored unit
 * @property {string} name - Unique service name
 * @property {ProbeSpec} probe - Liveness probe
 * @property {ActionSpec} remediation - Action invoked on probe failure
 * @property {ActionSpec} stop - Optional stop action, used by emergency reset
 */
type ServiceDescriptor struct {
	Name        string      `json:"name"`
	Probe       ProbeSpec   `json:"probe"`
	Remediation ActionSpec  `json:"remediation"`
	Stop        *ActionSpec `json:"stop,omitempty"`
}

// Acceptable reports whether status counts as healthy for this descriptor.
// Whether e.g. 404 is healthy is a per-service decision, not a global one.
func (d *ServiceDescriptor) Acceptable(status int) bool {
	if len(d.Probe.AcceptStatus) == 0 {
		return status == 200
	}
	for _, s := range d.Probe.AcceptStatus {
		if s == status {
			return true
		}
	}
	return false
}

/**
 * Predicate over governed file content
 * @property {string} type - exact | regex | json_key
 * @property {string} value - Expected full content (exact)
 * @property {string} pattern - Pattern the content must match (regex)
 * @property {string} key - Top-level JSON key (json_key)
 * @property {string} want - Expected string value of key (json_key)
 */
type MatcherSpec struct {
	Type    string `json:"type"`
	Value   string `json:"value,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Key     string `json:"key,omitempty"`
	Want    string `json:"want,omitempty"`
}

/**
 * Idempotent transformation fixing a drifted file
 * @property {string} type - write | regex_replace | set_json_key
 * @property {string} content - Full replacement content (write)
 * @property {string} pattern - Pattern to replace (regex_replace)
 * @property {string} replacement - Replacement text (regex_replace)
 * @property {string} key - Top-level JSON key to set (set_json_key)
 * @property {string} value - Value assigned to key (set_json_key)
 */
type FixerSpec struct {
	Type        string `json:"type"`
	Content     string `json:"content,omitempty"`
	Pattern     string `json:"pattern,omitempty"`
	Replacement string `json:"replacement,omitempty"`
	Key         string `json:"key,omitempty"`
	Value       string `json:"value,omitempty"`
}

/**
 * One governed file and its expected state
 * @property {string} name - Rule name, unique
 * @property {string} path - Governed file path
 * @property {MatcherSpec} matcher - What "correct" means
 * @property {FixerSpec} fixer - How to repair a deviation
 */
type ConfigRule struct {
	Name    string      `json:"name"`
	Path    string      `json:"path"`
	Matcher MatcherSpec `json:"matcher"`
	Fixer   FixerSpec   `json:"fixer"`
}

/**
 * System specification: the service registry plus the config rule set
 * @property {[]ServiceDescriptor} services - Monitored units
 * @property {[]ConfigRule} rules - Governed files
 */
type SystemSpecification struct {
	Services []ServiceDescriptor `json:"services"`
	Rules    []ConfigRule        `json:"rules"`
}

// GovernedPaths returns the deduplicated list of file paths under the rules.
func (s *SystemSpecification) GovernedPaths() []string {
	seen := map[string]bool{}
	var paths []string
	for _, r := range s.Rules {
		if !seen[r.Path] {
			seen[r.Path] = true
			paths = append(paths, r.Path)
		}
	}
	return paths
}

func loadLocalSpec() (*SystemSpecification, error) {
	fname := filepath.Join(env.StackguardDir, "share", "system-spec.json")

	bytes, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("load 'system-spec.json' failed: %w", err)
	}
	var spec SystemSpecification
	if err := json.Unmarshal(bytes, &spec); err != nil {
		return nil, fmt.Errorf("unmarshal 'system-spec.json' failed: %w", err)
	}
	return &spec, nil
}

var system *SystemSpecification

func LoadSpec() error {
	if system != nil {
		return nil
	}
	var err error
	system, err = loadLocalSpec()
	if err != nil {
		return err
	}
	return nil
}

func Spec() *SystemSpecification {
	if system == nil {
		if err := LoadSpec(); err != nil {
			// Keep going with an empty registry so read-only commands still work
			system = &SystemSpecification{}
		}
	}
	return system
}
