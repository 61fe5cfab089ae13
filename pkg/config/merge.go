package config

import "sort"

// Structural keys stripped from every layer so the provisioning tool never
// receives orchestration metadata as a resource variable.
const (
	keyEnabled = "enabled"
	keyModules = "modules"
	keyProfile = "profile"
)

// Variables is the flattened effective variable set for exactly one
// (cloud, module) cell. Consumed once by the artifact writer.
type Variables map[string]any

// SortedKeys returns the key set in lexicographic order. Emission order is
// deterministic so re-runs with identical input produce byte-identical
// artifacts.
func (v Variables) SortedKeys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge computes the effective variable set for one cell by layering the
// common, cloud-level and module-level settings. Precedence, highest wins:
// module > cloud > common. The structural keys `enabled` and `modules` are
// stripped from every layer; in pipeline context the profile key is
// additionally stripped from the common layer. Merge is a pure function of
// its inputs and the run-context snapshot.
func Merge(common, cloudVars map[string]any, moduleVars ModuleSettings, rc RunContext) Variables {
	out := make(Variables, len(common)+len(cloudVars)+len(moduleVars))

	for k, v := range common {
		if rc.Pipeline && k == keyProfile {
			continue
		}
		out[k] = v
	}
	for k, v := range cloudVars {
		out[k] = v
	}
	for k, v := range moduleVars {
		out[k] = v
	}

	delete(out, keyEnabled)
	delete(out, keyModules)

	return out
}

// MergeCell is a convenience wrapper resolving the layers of one cell from
// an environment. The module must exist in the cloud.
func (e *Environment) MergeCell(cloud string, module string, rc RunContext) Variables {
	c := e.Clouds[cloud]
	if c == nil {
		return Merge(e.Common, nil, nil, rc)
	}
	return Merge(e.Common, c.Settings, c.Modules[module], rc)
}
