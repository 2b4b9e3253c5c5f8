package access

import (
	"fmt"
	"strings"
)

// Tier is the sensitivity classification of a single field.
type Tier uint8

const (
	TierPublic Tier = iota + 1
	TierRestricted
	TierConfidential
)

// String returns the lowercase tier name used in configuration and audit rows.
func (t Tier) String() string {
	switch t {
	case TierPublic:
		return "public"
	case TierRestricted:
		return "restricted"
	case TierConfidential:
		return "confidential"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// ParseTier maps a configuration value onto a Tier.
func ParseTier(value string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "public":
		return TierPublic, nil
	case "restricted":
		return TierRestricted, nil
	case "confidential":
		return TierConfidential, nil
	default:
		return 0, fmt.Errorf("access: unknown tier %q", value)
	}
}

// TierSet is a small bitset of tiers. The zero value is empty.
type TierSet uint8

// Tiers builds a TierSet from the given tiers.
func Tiers(tiers ...Tier) TierSet {
	var set TierSet
	for _, t := range tiers {
		set |= 1 << t
	}
	return set
}

var (
	publicOnly     = Tiers(TierPublic)
	upToRestricted = Tiers(TierPublic, TierRestricted)
	allTiers       = Tiers(TierPublic, TierRestricted, TierConfidential)
)

// Has reports whether t is in the set.
func (s TierSet) Has(t Tier) bool {
	return s&(1<<t) != 0
}

// Contains reports whether every tier of other is also in s.
func (s TierSet) Contains(other TierSet) bool {
	return s&other == other
}

// Slice lists the tiers in ascending sensitivity.
func (s TierSet) Slice() []Tier {
	out := make([]Tier, 0, 3)
	for _, t := range []Tier{TierPublic, TierRestricted, TierConfidential} {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s TierSet) String() string {
	parts := make([]string, 0, 3)
	for _, t := range s.Slice() {
		parts = append(parts, t.String())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
