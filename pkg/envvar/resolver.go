package envvar

import (
	"sort"
	"strings"
)

// Scoring constants for RankSuggestions. An exact normalized match beats a
// containment match, which beats word-level overlap. Candidates that score
// zero are dropped, not ranked last.
const (
	scoreExact    = 100
	scoreContains = 50
	scorePerWord  = 25
	boostHasValue = 10
	minWordLength = 3
)

// keyLikeHints mark variable names whose values belong under the api_keys
// namespace rather than general settings.
var keyLikeHints = []string{"api_key", "key", "secret", "token"}

// SynthesizePath derives the settings-store path for a manually entered or
// override-supplied value. Key-like names (anything containing api_key, key,
// secret, or token) land under api_keys; everything else under settings.
//
// Every caller that needs a new path must go through this function so the
// namespace decision cannot drift between call sites.
func SynthesizePath(name string) string {
	lower := strings.ToLower(name)
	for _, hint := range keyLikeHints {
		if strings.Contains(lower, hint) {
			return "api_keys." + lower
		}
	}
	return "settings." + lower
}

// RankSuggestions orders the candidates most plausibly matching the given
// environment variable name, best first. Candidates with no measurable
// relationship to the name are omitted entirely; an empty result means
// nothing relevant exists, not that everything was equally bad.
//
// Ties keep their input order. Candidates that already hold a value get a
// small boost so populated settings surface above empty placeholders.
func RankSuggestions(envVarName string, candidates []Candidate) []Candidate {
	if envVarName == "" || len(candidates) == 0 {
		return nil
	}

	target := normalize(envVarName)
	if target == "" {
		return nil
	}

	type scored struct {
		candidate Candidate
		score     int
	}

	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		s := matchScore(envVarName, target, c)
		if s <= 0 {
			continue
		}
		if c.HasValue {
			s += boostHasValue
		}
		ranked = append(ranked, scored{candidate: c, score: s})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	result := make([]Candidate, len(ranked))
	for i, r := range ranked {
		result[i] = r.candidate
	}
	return result
}

// matchScore computes the raw relevance of one candidate, before the
// has-value boost. target is the already-normalized env var name.
func matchScore(envVarName, target string, c Candidate) int {
	segment := lastSegment(c.Path)
	normalized := normalize(segment)
	if normalized == "" {
		return 0
	}

	if normalized == target {
		return scoreExact
	}
	if strings.Contains(normalized, target) || strings.Contains(target, normalized) {
		return scoreContains
	}

	shared := sharedWords(splitWords(envVarName, "_"), splitWords(segment, "_-"))
	return scorePerWord * shared
}

// sharedWords counts env var words that overlap a candidate word in either
// substring direction.
func sharedWords(envWords, candidateWords []string) int {
	count := 0
	for _, ew := range envWords {
		for _, cw := range candidateWords {
			if strings.Contains(cw, ew) || strings.Contains(ew, cw) {
				count++
				break
			}
		}
	}
	return count
}

// splitWords lowercases s, splits it on any of the separator runes, and
// keeps only words long enough to be meaningful.
func splitWords(s, separators string) []string {
	parts := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
	words := parts[:0]
	for _, p := range parts {
		if len(p) >= minWordLength {
			words = append(words, p)
		}
	}
	return words
}

// normalize lowercases and strips underscores so OPENAI_API_KEY and
// openai_api_key compare equal.
func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "_", "")
}

// lastSegment returns the final dot-delimited segment of a settings path.
func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

// ResolveInitial computes the starting wiring decision for one declared
// variable. Precedence, first match wins:
//
//  1. An override for the variable: locked, value and attribution from the
//     override, persisted under a synthesized path.
//  2. A resolution the catalog backend already made (Spec.ResolvedSource).
//  3. A non-empty declared default.
//  4. The empty default state, awaiting manual input.
//
// Overrides beat backend resolutions deliberately: infrastructure facts are
// fresher than whatever the backend cached when the template was stored.
// The function is total; malformed input degrades to the empty state.
func ResolveInitial(spec Spec, overrides map[string]Override) Resolved {
	if ov, ok := overrides[spec.Name]; ok {
		return Resolved{
			Name:           spec.Name,
			Source:         SourceNewSetting,
			Value:          ov.Value,
			NewSettingPath: SynthesizePath(spec.Name),
			Locked:         true,
			ProviderName:   ov.ProviderName,
		}
	}

	if spec.ResolvedSource != "" {
		if spec.ResolvedSource == SourceSetting {
			// A setting-backed resolution needs its path; without one there
			// is nothing to map to and the variable falls through.
			if spec.SettingPath != "" {
				return Resolved{
					Name:        spec.Name,
					Source:      SourceSetting,
					SettingPath: spec.SettingPath,
				}
			}
		} else {
			return Resolved{
				Name:   spec.Name,
				Source: spec.ResolvedSource,
				Value:  spec.ResolvedValue,
			}
		}
	}

	// Declared defaults are displayed out-of-band by the consumer; the
	// record stays empty either way.
	return Resolved{Name: spec.Name, Source: SourceDefault}
}

// ApplyManualValue replaces the record for one field after the operator
// typed a value. A non-empty value becomes a new setting at a synthesized
// path; an empty value clears the field back to the default state.
//
// Manual edits always clear the lock: locking is advisory display state, and
// a consumer that must keep a field immutable simply never offers the edit.
func ApplyManualValue(current Resolved, typedValue string) Resolved {
	if typedValue == "" {
		return Resolved{Name: current.Name, Source: SourceDefault}
	}
	return Resolved{
		Name:           current.Name,
		Source:         SourceNewSetting,
		Value:          typedValue,
		NewSettingPath: SynthesizePath(current.Name),
	}
}

// ApplySettingMapping replaces the record for one field after the operator
// mapped it to an existing setting. The value is intentionally not embedded:
// consumers fetch it from the settings store when it is actually needed.
func ApplySettingMapping(current Resolved, settingPath string) Resolved {
	return Resolved{
		Name:        current.Name,
		Source:      SourceSetting,
		SettingPath: settingPath,
	}
}
