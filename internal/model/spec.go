package model

import "strings"

// Tier is the provenance weight of a seller-supplied specification.
type Tier string

const (
	TierPrimary   Tier = "Primary"
	TierSecondary Tier = "Secondary"
	TierTertiary  Tier = "Tertiary"
)

// ParseTier maps free-form tier labels to a Tier. Anything unrecognized is
// treated as Tertiary.
func ParseTier(s string) Tier {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary", "p", "1":
		return TierPrimary
	case "secondary", "s", "2":
		return TierSecondary
	default:
		return TierTertiary
	}
}

// Priority returns the matching weight for the tier (Primary=3, Secondary=2,
// Tertiary=1).
func (t Tier) Priority() int {
	switch t {
	case TierPrimary:
		return 3
	case TierSecondary:
		return 2
	default:
		return 1
	}
}

// Extraction category priorities.
const (
	PriorityConfig = 3
	PriorityKey    = 2
	PriorityBuyer  = 1
)

// SpecEntry is a named specification with candidate option values.
type SpecEntry struct {
	Name      string   `json:"name" yaml:"name"`
	Options   []string `json:"options" yaml:"options"`
	Tier      Tier     `json:"tier,omitempty" yaml:"tier,omitempty"`
	InputType string   `json:"input_type,omitempty" yaml:"input_type,omitempty"`
}

// WeightedSpec is a SpecEntry carrying the integer priority used for pairing.
// Index is the entry's position in the collection it was flattened from.
type WeightedSpec struct {
	SpecEntry
	Priority int `json:"priority"`
	Index    int `json:"index"`
}

// ExtractionResult is the typed output of the web-spec extraction
// collaborator. A Config with an empty name means "no config contribution".
type ExtractionResult struct {
	Config SpecEntry   `json:"config"`
	Keys   []SpecEntry `json:"keys"`
	Buyers []SpecEntry `json:"buyers"`
}

// HasConfig reports whether the result carries a usable config spec.
func (r ExtractionResult) HasConfig() bool {
	return strings.TrimSpace(r.Config.Name) != ""
}

// IsEmpty reports whether the result contributes nothing at all.
func (r ExtractionResult) IsEmpty() bool {
	return !r.HasConfig() && len(r.Keys) == 0 && len(r.Buyers) == 0
}

// MatchedSpecPair is one source/target pairing produced by reconciliation.
// CommonOptions holds source wording only, in source order.
type MatchedSpecPair struct {
	Source           SpecEntry `json:"source"`
	Target           SpecEntry `json:"target"`
	SourceIndex      int       `json:"source_index"`
	TargetIndex      int       `json:"target_index"`
	CommonOptions    []string  `json:"common_options"`
	CombinedPriority int       `json:"combined_priority"`
}

// BuyerISQ is a final buyer-facing specification.
type BuyerISQ struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// CommonSpec is a paired spec with its option-level diff.
type CommonSpec struct {
	Name          string   `json:"name"`
	SourceName    string   `json:"source_name"`
	TargetName    string   `json:"target_name"`
	CommonOptions []string `json:"common_options"`
	SourceOnly    []string `json:"source_only"`
	TargetOnly    []string `json:"target_only"`
}

// Comparison is a two-sided diff of two spec collections.
type Comparison struct {
	Common          []CommonSpec `json:"common"`
	SourceOnlySpecs []SpecEntry  `json:"source_only_specs"`
	TargetOnlySpecs []SpecEntry  `json:"target_only_specs"`
}
