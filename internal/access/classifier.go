package access

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed classification.yaml
var defaultClassification []byte

// ConfigurationError reports a field or resource missing from the
// classification table.
type ConfigurationError struct {
	Resource ResourceType
	Field    string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("access: configuration: %s: %s", e.Resource, e.Reason)
	}
	return fmt.Sprintf("access: configuration: %s.%s: %s", e.Resource, e.Field, e.Reason)
}

// FieldClass is the classification of one field.
type FieldClass struct {
	Tier      Tier
	Anonymous bool
}

// Capability is a named group of fields surfaced as a can_view_* flag.
type Capability struct {
	Name   string
	Fields []string
}

type resourceClass struct {
	directory    bool
	fields       map[string]FieldClass
	capabilities []Capability
}

// Classifier is an immutable snapshot of the sensitivity table. It is safe
// for concurrent use without locking.
type Classifier struct {
	resources map[ResourceType]resourceClass
}

type fieldSpec struct {
	Tier      string `yaml:"tier"`
	Anonymous bool   `yaml:"anonymous"`
}

type resourceSpec struct {
	Directory    bool                 `yaml:"directory"`
	Fields       map[string]fieldSpec `yaml:"fields"`
	Capabilities map[string][]string  `yaml:"capabilities"`
}

// DefaultClassifier parses the embedded table and validates it.
func DefaultClassifier() (*Classifier, error) {
	c, err := LoadClassifier(defaultClassification)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadClassifier parses a YAML classification table. It does not run
// Validate; callers must do so before serving traffic.
func LoadClassifier(data []byte) (*Classifier, error) {
	var raw map[string]resourceSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("access: parse classification: %w", err)
	}
	c := &Classifier{resources: make(map[ResourceType]resourceClass, len(raw))}
	for name, spec := range raw {
		rt := ResourceType(name)
		if !rt.IsValid() {
			return nil, &ConfigurationError{Resource: rt, Reason: "unknown resource type"}
		}
		class := resourceClass{
			directory: spec.Directory,
			fields:    make(map[string]FieldClass, len(spec.Fields)),
		}
		for field, fs := range spec.Fields {
			tier, err := ParseTier(fs.Tier)
			if err != nil {
				return nil, &ConfigurationError{Resource: rt, Field: field, Reason: err.Error()}
			}
			class.fields[field] = FieldClass{Tier: tier, Anonymous: fs.Anonymous}
		}
		names := make([]string, 0, len(spec.Capabilities))
		for capName := range spec.Capabilities {
			names = append(names, capName)
		}
		sort.Strings(names)
		for _, capName := range names {
			fields := append([]string(nil), spec.Capabilities[capName]...)
			class.capabilities = append(class.capabilities, Capability{Name: capName, Fields: fields})
		}
		c.resources[rt] = class
	}
	return c, nil
}

// Validate checks that every projectable field of every resource type is
// classified, that capability groups reference classified fields and that
// only public fields are marked anonymous.
func (c *Classifier) Validate() error {
	var errs []error
	for _, rt := range ResourceTypes() {
		class, ok := c.resources[rt]
		if !ok {
			errs = append(errs, &ConfigurationError{Resource: rt, Reason: "resource type not classified"})
			continue
		}
		record := blankResource(rt).Record()
		fields := make([]string, 0, len(record))
		for field := range record {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			if _, ok := class.fields[field]; !ok {
				errs = append(errs, &ConfigurationError{Resource: rt, Field: field, Reason: "field not classified"})
			}
		}
		for field, fc := range class.fields {
			if fc.Anonymous && fc.Tier != TierPublic {
				errs = append(errs, &ConfigurationError{Resource: rt, Field: field, Reason: "anonymous access requires public tier"})
			}
		}
		for _, capability := range class.capabilities {
			if len(capability.Fields) == 0 {
				errs = append(errs, &ConfigurationError{Resource: rt, Field: capability.Name, Reason: "capability has no fields"})
			}
			for _, field := range capability.Fields {
				if _, ok := class.fields[field]; !ok {
					errs = append(errs, &ConfigurationError{Resource: rt, Field: field, Reason: "capability " + capability.Name + " references unclassified field"})
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Classify returns the tier of a field.
func (c *Classifier) Classify(rt ResourceType, field string) (Tier, error) {
	fc, err := c.Field(rt, field)
	if err != nil {
		return 0, err
	}
	return fc.Tier, nil
}

// Field returns the full classification of a field.
func (c *Classifier) Field(rt ResourceType, field string) (FieldClass, error) {
	class, ok := c.resources[rt]
	if !ok {
		return FieldClass{}, &ConfigurationError{Resource: rt, Reason: "resource type not classified"}
	}
	fc, ok := class.fields[field]
	if !ok {
		return FieldClass{}, &ConfigurationError{Resource: rt, Field: field, Reason: "field not classified"}
	}
	return fc, nil
}

// Capabilities lists the capability groups of a resource type, sorted by name.
func (c *Classifier) Capabilities(rt ResourceType) []Capability {
	return c.resources[rt].capabilities
}

// IsDirectory reports whether the resource type is a public listing.
func (c *Classifier) IsDirectory(rt ResourceType) bool {
	return c.resources[rt].directory
}
