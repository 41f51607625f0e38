// Package catalog loads and serves service templates: the per-service
// description of which environment variables a deployment needs, which
// capabilities the service provides or requires, and any resolutions the
// backend has already recorded for its variables.
//
// Templates are YAML files in a directory, one service per file. The catalog
// is immutable once loaded; lookups hand out deep copies so callers cannot
// mutate shared state.
package catalog

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/ushadow/envwire/internal/snapshot"
	"github.com/ushadow/envwire/pkg/envvar"
)

// Well-known capability names. The set is open: templates may declare
// capabilities beyond these.
const (
	CapabilityLLM           = "llm"
	CapabilityTranscription = "transcription"
	CapabilityMemory        = "memory"
)

// Template describes one deployable service.
type Template struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Provides and Requires are capability names (llm, transcription,
	// memory, ...). A service providing a capability can be wired to one
	// requiring it.
	Provides []string `yaml:"provides,omitempty" json:"provides,omitempty"`
	Requires []string `yaml:"requires,omitempty" json:"requires,omitempty"`

	// Env declares the service's environment variables, including any
	// resolution the backend already recorded per variable.
	Env []envvar.Spec `yaml:"env" json:"env"`

	// Exports maps environment variable names to the values this service
	// contributes to consumers when wired as a capability provider.
	Exports map[string]string `yaml:"exports,omitempty" json:"exports,omitempty"`
}

var (
	envNamePattern    = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)
	capabilityPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
)

// Validate checks the template's internal consistency.
func (t Template) Validate() error {
	if t.ID == "" {
		return errors.New("template id is required")
	}
	if t.Name == "" {
		return errors.Errorf("template %q: name is required", t.ID)
	}

	for _, capability := range append(append([]string{}, t.Provides...), t.Requires...) {
		if !capabilityPattern.MatchString(capability) {
			return errors.Errorf("template %q: invalid capability name %q", t.ID, capability)
		}
	}

	seen := make(map[string]bool, len(t.Env))
	for _, spec := range t.Env {
		if !envNamePattern.MatchString(spec.Name) {
			return errors.Errorf("template %q: invalid env var name %q", t.ID, spec.Name)
		}
		if seen[spec.Name] {
			return errors.Errorf("template %q: duplicate env var %q", t.ID, spec.Name)
		}
		seen[spec.Name] = true

		if spec.DefaultValue != "" && !spec.HasDefault {
			return errors.Errorf("template %q: env var %q has a default value but has_default is false", t.ID, spec.Name)
		}
		if err := validateResolution(spec); err != nil {
			return errors.Wrapf(err, "template %q: env var %q", t.ID, spec.Name)
		}
	}

	for name := range t.Exports {
		if !envNamePattern.MatchString(name) {
			return errors.Errorf("template %q: invalid exported env var name %q", t.ID, name)
		}
	}
	return nil
}

func validateResolution(spec envvar.Spec) error {
	switch spec.ResolvedSource {
	case "":
		if spec.SettingPath != "" {
			return errors.New("setting_path requires resolved_source: setting")
		}
	case envvar.SourceSetting:
		if spec.SettingPath == "" {
			return errors.New("resolved_source: setting requires setting_path")
		}
	case envvar.SourceNewSetting, envvar.SourceLiteral, envvar.SourceDefault:
		// value-carrying or empty resolutions need nothing extra
	default:
		return errors.Errorf("unknown resolved_source %q", spec.ResolvedSource)
	}
	return nil
}

// Catalog is an immutable set of templates keyed by service id.
type Catalog struct {
	templates map[string]*Template
	order     []string
}

// LoadDir reads every .yaml/.yml file in dir as one template each.
func LoadDir(dir string) (*Catalog, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog directory %q", dir)
	}

	c := &Catalog{templates: make(map[string]*Template)}
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		template, err := loadTemplate(path)
		if err != nil {
			return nil, err
		}
		if _, exists := c.templates[template.ID]; exists {
			return nil, errors.Errorf("duplicate template id %q in %q", template.ID, path)
		}
		c.templates[template.ID] = template
		c.order = append(c.order, template.ID)
	}

	sort.Strings(c.order)
	log.Info().Int("templates", len(c.order)).Str("dir", dir).Msg("Loaded service catalog")
	return c, nil
}

func loadTemplate(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read template %q", path)
	}

	var template Template
	if err := yaml.Unmarshal(data, &template); err != nil {
		return nil, errors.Wrapf(err, "failed to parse template %q", path)
	}
	if err := template.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid template %q", path)
	}
	return &template, nil
}

// Templates lists all templates in id order, as independent copies.
func (c *Catalog) Templates() []Template {
	result := make([]Template, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, *snapshot.MustCopy(c.templates[id]))
	}
	return result
}

// Template returns a copy of the template with the given id.
func (c *Catalog) Template(id string) (*Template, error) {
	template, ok := c.templates[id]
	if !ok {
		return nil, errors.Errorf("unknown service %q", id)
	}
	return snapshot.MustCopy(template), nil
}

// ProvidersOf lists templates providing the given capability, in id order.
func (c *Catalog) ProvidersOf(capability string) []Template {
	var result []Template
	for _, id := range c.order {
		t := c.templates[id]
		for _, provided := range t.Provides {
			if provided == capability {
				result = append(result, *snapshot.MustCopy(t))
				break
			}
		}
	}
	return result
}
