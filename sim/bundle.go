package sim

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ClusterBundle holds the simulator's pluggable-policy configuration,
// loadable from a YAML file: which placement policy assigns replicas to
// hosts, and a list of observer names (spec §4.10). Observer names are
// only validated; the run command attaches the LogObserver whatever the
// list holds.
type ClusterBundle struct {
	Placement PlacementConfig `yaml:"placement"`
	Observers []string        `yaml:"observers"`
}

// PlacementConfig selects and parameterizes a PlacementPolicy.
type PlacementConfig struct {
	Policy        string   `yaml:"policy"`
	CPUWeight     *float64 `yaml:"cpu_weight"`
	RAMWeight     *float64 `yaml:"ram_weight"`
	BandwidthWeight *float64 `yaml:"bandwidth_weight"`
}

// LoadClusterBundle reads and parses a YAML cluster configuration file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadClusterBundle(path string) (*ClusterBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cluster config: %w", err)
	}
	var bundle ClusterBundle
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&bundle); err != nil {
		return nil, fmt.Errorf("parsing cluster config: %w", err)
	}
	return &bundle, nil
}

var (
	validPlacementPolicies = map[string]bool{"": true, "least-fit": true, "first-fit": true, "first-fit-decreasing": true}
	validObserverNames     = map[string]bool{
		"request-lifecycle": true, "thread-lifecycle": true, "transmission-lifecycle": true,
		"load-balance": true, "zombie-reap": true, "placement": true, "resource-pressure": true,
	}
)

// IsValidPlacementPolicy returns true if name is a recognized placement policy.
func IsValidPlacementPolicy(name string) bool { return validPlacementPolicies[name] }

// ValidPlacementPolicyNames returns sorted valid placement policy names (excluding empty).
func ValidPlacementPolicyNames() []string { return validNamesList(validPlacementPolicies) }

// ValidObserverNames returns sorted valid observer names.
func ValidObserverNames() []string { return validNamesList(validObserverNames) }

// validNamesList returns sorted non-empty keys from a validity map.
func validNamesList(m map[string]bool) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return names
}

func validNames(m map[string]bool) string {
	names := make([]string, 0, len(m))
	for k := range m {
		if k != "" {
			names = append(names, k)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// Validate checks that the policy name and every observer name in the
// bundle are recognized.
func (b *ClusterBundle) Validate() error {
	if !validPlacementPolicies[b.Placement.Policy] {
		return fmt.Errorf("unknown placement policy %q; valid options: %s", b.Placement.Policy, validNames(validPlacementPolicies))
	}
	for _, o := range b.Observers {
		if !validObserverNames[o] {
			return fmt.Errorf("unknown observer %q; valid options: %s", o, validNames(validObserverNames))
		}
	}
	return nil
}
