package access

import (
	"encoding/json"
	"sort"
)

// RestrictedPlaceholder replaces restricted values the caller may not see.
const RestrictedPlaceholder = "Contact available to business partners"

// SafeRecord is a record shaped by a decision and safe to return.
type SafeRecord struct {
	ResourceType ResourceType
	ResourceID   string
	// Fields holds every input field; hidden values are nil.
	Fields Record
	// Capabilities holds the can_view_* flags of the resource type.
	Capabilities map[string]bool
	// Redacted maps hidden restricted fields to their placeholder text.
	Redacted map[string]string
	Reason   string
	// Disclosed lists the restricted and confidential fields that carry a
	// value in Fields, sorted.
	Disclosed []string
}

// MarshalJSON flattens fields and capability flags into one object.
func (s SafeRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Fields)+len(s.Capabilities)+4)
	for k, v := range s.Fields {
		out[k] = v
	}
	for k, v := range s.Capabilities {
		out[k] = v
	}
	out["id"] = s.ResourceID
	out["resource_type"] = s.ResourceType
	out["reason"] = s.Reason
	if len(s.Redacted) > 0 {
		out["redacted"] = s.Redacted
	}
	return json.Marshal(out)
}

// Projector applies decisions to raw records.
type Projector struct {
	classifier *Classifier
}

// NewProjector constructs a Projector.
func NewProjector(classifier *Classifier) *Projector {
	return &Projector{classifier: classifier}
}

// Project redacts rec according to d. Values are kept or replaced whole,
// including composite values. An unclassified field aborts the projection
// with a *ConfigurationError.
func (p *Projector) Project(rt ResourceType, rec Record, d Decision) (SafeRecord, error) {
	out := SafeRecord{
		ResourceType: rt,
		Fields:       make(Record, len(rec)),
		Capabilities: make(map[string]bool),
		Redacted:     make(map[string]string),
		Reason:       d.Reason(),
	}
	for field, value := range rec {
		fc, err := p.classifier.Field(rt, field)
		if err != nil {
			return SafeRecord{}, err
		}
		if d.Allows(fc) {
			out.Fields[field] = value
			if fc.Tier != TierPublic && value != nil {
				out.Disclosed = append(out.Disclosed, field)
			}
			continue
		}
		out.Fields[field] = nil
		if fc.Tier == TierRestricted {
			out.Redacted[field] = RestrictedPlaceholder
		}
	}
	sort.Strings(out.Disclosed)

	for _, capability := range p.classifier.Capabilities(rt) {
		allowed := true
		for _, field := range capability.Fields {
			fc, err := p.classifier.Field(rt, field)
			if err != nil {
				return SafeRecord{}, err
			}
			if !d.Allows(fc) {
				allowed = false
				break
			}
		}
		out.Capabilities[capability.Name] = allowed
	}
	return out, nil
}
