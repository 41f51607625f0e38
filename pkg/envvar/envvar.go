// Package envvar implements the environment variable wiring model for
// ushadow service configurations. It decides, for each variable a service
// declares, where its value comes from (an existing setting, a newly typed
// value, a literal, or a default), which existing settings are worth
// suggesting as a mapping, and whether the field is locked because
// infrastructure or a wired capability provider already supplies it.
//
// Everything in this package is pure: no I/O, no shared state. Callers own
// fetching candidates and override maps and persisting the results.
package envvar

// Source identifies where a resolved value comes from.
type Source string

const (
	// SourceSetting maps the variable to an existing settings-store path.
	// The value is fetched from the store when needed, never carried inline.
	SourceSetting Source = "setting"

	// SourceNewSetting carries a value that should be persisted to a
	// synthesized settings-store path.
	SourceNewSetting Source = "new_setting"

	// SourceLiteral is a verbatim value supplied by the catalog backend.
	SourceLiteral Source = "literal"

	// SourceDefault means no explicit configuration: the service's declared
	// default applies, or the field awaits manual input.
	SourceDefault Source = "default"
)

// Spec describes one environment variable a service declares.
//
// The Resolved* fields carry a resolution the catalog backend has already
// made for this variable, if any. ResolvedSource empty means none.
type Spec struct {
	Name         string `json:"name" yaml:"name"`
	Required     bool   `json:"required" yaml:"required"`
	HasDefault   bool   `json:"has_default,omitempty" yaml:"has_default,omitempty"`
	DefaultValue string `json:"default_value,omitempty" yaml:"default_value,omitempty"`

	ResolvedSource Source `json:"resolved_source,omitempty" yaml:"resolved_source,omitempty"`
	ResolvedValue  string `json:"resolved_value,omitempty" yaml:"resolved_value,omitempty"`
	SettingPath    string `json:"setting_path,omitempty" yaml:"setting_path,omitempty"`
}

// Candidate describes one existing setting that could supply a value.
// Value, when present, is a masked display value, never the raw secret.
type Candidate struct {
	Path     string `json:"path"`
	Label    string `json:"label,omitempty"`
	HasValue bool   `json:"has_value"`
	Value    string `json:"value,omitempty"`
}

// DisplayName returns the candidate's label, falling back to its path.
func (c Candidate) DisplayName() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Path
}

// Override is a value supplied by an external authority (an infrastructure
// scan of the deployment target, or a wired capability provider). Overrides
// take precedence over manual configuration and render as locked fields.
type Override struct {
	Value        string `json:"value"`
	ProviderName string `json:"provider_name"`
}

// Resolved is the wiring decision for one declared variable. Records are
// replaced, never mutated: editing one field produces a fresh Resolved for
// that field only.
//
// At most one of SettingPath and NewSettingPath is set. When Source is
// SourceSetting the value is deliberately absent; consumers fetch it from
// the settings store at the moment it is needed so secrets do not linger in
// intermediate state.
type Resolved struct {
	Name           string `json:"name"`
	Source         Source `json:"source"`
	Value          string `json:"value,omitempty"`
	SettingPath    string `json:"setting_path,omitempty"`
	NewSettingPath string `json:"new_setting_path,omitempty"`
	Locked         bool   `json:"locked,omitempty"`
	ProviderName   string `json:"provider_name,omitempty"`
}
