package envvar

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genEnvVarName produces plausible upper-snake-case variable names.
func genEnvVarName() gopter.Gen {
	word := gen.RegexMatch(`[A-Z]{2,8}`)
	return gen.SliceOfN(3, word).Map(func(words []string) string {
		return strings.Join(words, "_")
	})
}

func genCandidate() gopter.Gen {
	return gopter.CombineGens(
		gen.RegexMatch(`(settings|api_keys)\.[a-z_]{3,20}`),
		gen.Bool(),
	).Map(func(values []interface{}) Candidate {
		return Candidate{Path: values[0].(string), HasValue: values[1].(bool)}
	})
}

func TestResolverProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("synthesized paths are deterministic and lowercase", prop.ForAll(
		func(name string) bool {
			first := SynthesizePath(name)
			second := SynthesizePath(name)
			return first == second && first == strings.ToLower(first)
		},
		genEnvVarName(),
	))

	properties.Property("synthesized paths land in exactly one namespace", prop.ForAll(
		func(name string) bool {
			path := SynthesizePath(name)
			return strings.HasPrefix(path, "api_keys.") != strings.HasPrefix(path, "settings.")
		},
		genEnvVarName(),
	))

	properties.Property("resolve initial is idempotent", prop.ForAll(
		func(name, value, provider string, withOverride bool) bool {
			spec := Spec{Name: name, Required: true}
			var overrides map[string]Override
			if withOverride {
				overrides = map[string]Override{name: {Value: value, ProviderName: provider}}
			}
			return reflect.DeepEqual(ResolveInitial(spec, overrides), ResolveInitial(spec, overrides))
		},
		genEnvVarName(),
		gen.AlphaString(),
		gen.Identifier(),
		gen.Bool(),
	))

	properties.Property("manual edit always clears the lock", prop.ForAll(
		func(name, typed string, locked bool) bool {
			current := Resolved{Name: name, Source: SourceNewSetting, Locked: locked, ProviderName: "infra"}
			return !ApplyManualValue(current, typed).Locked
		},
		genEnvVarName(),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.Property("exactly one of settingPath/newSettingPath survives any operation", prop.ForAll(
		func(name, typed, path string) bool {
			states := []Resolved{
				ResolveInitial(Spec{Name: name}, map[string]Override{name: {Value: typed, ProviderName: "infra"}}),
				ApplyManualValue(Resolved{Name: name}, typed),
				ApplySettingMapping(Resolved{Name: name}, path),
			}
			for _, s := range states {
				if s.SettingPath != "" && s.NewSettingPath != "" {
					return false
				}
			}
			return true
		},
		genEnvVarName(),
		gen.AlphaString(),
		gen.RegexMatch(`settings\.[a-z_]{3,20}`),
	))

	properties.Property("has-value boost never demotes a candidate", prop.ForAll(
		func(name string, candidate Candidate) bool {
			empty := candidate
			empty.HasValue = false
			populated := candidate
			populated.HasValue = true

			ranked := RankSuggestions(name, []Candidate{empty, populated})
			switch len(ranked) {
			case 0:
				return true // both dropped: no relationship to the name
			case 2:
				return ranked[0].HasValue
			default:
				return false // identical paths must score identically
			}
		},
		genEnvVarName(),
		genCandidate(),
	))

	properties.Property("ranked output is a subset of the input", prop.ForAll(
		func(name string, candidates []Candidate) bool {
			byPath := make(map[string]bool, len(candidates))
			for _, c := range candidates {
				byPath[c.Path] = true
			}
			for _, r := range RankSuggestions(name, candidates) {
				if !byPath[r.Path] {
					return false
				}
			}
			return true
		},
		genEnvVarName(),
		gen.SliceOf(genCandidate()),
	))

	properties.TestingRun(t)
}
