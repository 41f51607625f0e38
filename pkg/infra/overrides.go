// Package infra turns deployment-target facts into env var overrides. Two
// authorities contribute: an infrastructure scan of the target (which
// backing technologies are already running and where) and capability
// wirings (which service config supplies llm/transcription/memory to which
// consumer). Both produce envvar.Override values that the resolver treats
// as locked.
package infra

import (
	"strings"

	"github.com/ushadow/envwire/pkg/envvar"
)

// Detection is one backing technology found on the deployment target.
type Detection struct {
	// Technology is the coarse-grained technology key: mongo, redis,
	// postgres, qdrant.
	Technology string `json:"technology"`

	// Endpoint is the connection value the scan discovered (URL, host:port).
	Endpoint string `json:"endpoint"`
}

// technologyMatchers maps a technology key to the env-var-name substrings it
// claims. Matching is a fixed substring table, not a heuristic: a variable
// either belongs to a technology or it does not.
var technologyMatchers = map[string][]string{
	"mongo":    {"MONGO"},
	"redis":    {"REDIS"},
	"postgres": {"POSTGRES", "DATABASE_URL"},
	"qdrant":   {"QDRANT"},
}

// Pinned values that never follow the scanned endpoint. The platform owns
// its Mongo database name, and Qdrant's port is fixed by its deployment.
var pinnedValues = map[string]string{
	"MONGODB_DATABASE": "ushadow",
	"QDRANT_PORT":      "6333",
}

// Matches reports whether the named env var belongs to the technology.
func Matches(technology, envVarName string) bool {
	upper := strings.ToUpper(envVarName)
	for _, needle := range technologyMatchers[technology] {
		if strings.Contains(upper, needle) {
			return true
		}
	}
	return false
}

// ScanOverrides computes the override set the detections imply for the given
// env var specs. Pinned variables get their fixed literal independent of
// whatever endpoint the detection carries.
func ScanOverrides(detections []Detection, specs []envvar.Spec) map[string]envvar.Override {
	overrides := make(map[string]envvar.Override)
	for _, spec := range specs {
		for _, d := range detections {
			if !Matches(d.Technology, spec.Name) {
				continue
			}
			value := d.Endpoint
			if pinned, ok := pinnedValues[strings.ToUpper(spec.Name)]; ok {
				value = pinned
			}
			overrides[spec.Name] = envvar.Override{Value: value, ProviderName: d.Technology}
			break
		}
	}
	return overrides
}

// MergeOverrides layers override sets; later sets win on conflicts. The
// server merges provider overrides first and scan overrides on top, so
// infrastructure facts beat wiring exports for the same variable.
func MergeOverrides(sets ...map[string]envvar.Override) map[string]envvar.Override {
	merged := make(map[string]envvar.Override)
	for _, set := range sets {
		for name, override := range set {
			merged[name] = override
		}
	}
	return merged
}
