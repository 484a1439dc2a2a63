package epop

import (
	"regexp"
	"strings"
)

// EntityType is the closed set of mention types annotated in the corpus.
type EntityType string

const (
	EntityOrganism EntityType = "Organism"
	EntityDisease  EntityType = "Disease"
	EntityHabitat  EntityType = "Habitat"
	EntityLocation EntityType = "Location"
)

// EntityTypes lists all entity types in canonical order.
var EntityTypes = []EntityType{EntityOrganism, EntityDisease, EntityHabitat, EntityLocation}

// RelationType is the closed set of relation types annotated in the corpus.
type RelationType string

const (
	RelationTransmits      RelationType = "Transmits"
	RelationCauses         RelationType = "Causes"
	RelationAffects        RelationType = "Affects"
	RelationHasBeenFoundOn RelationType = "HasBeenFoundOn"
)

// RelationTypes lists all relation types in canonical order.
var RelationTypes = []RelationType{RelationTransmits, RelationCauses, RelationAffects, RelationHasBeenFoundOn}

// Modality qualifies how a relation is stated in the text.
type Modality string

const (
	ModalityAsserted     Modality = "Asserted"
	ModalityNegated      Modality = "Negated"
	ModalityHypothetical Modality = "Hypothetical"
	ModalityUncertain    Modality = "Uncertain"
)

// Authority is the registry a linking identifier belongs to.
type Authority string

const (
	AuthorityNCBITaxonomy Authority = "NCBI_Taxonomy"
	AuthorityGeoNames     Authority = "GeoNames"
	AuthorityOntoBiotope  Authority = "OntoBiotope"
	AuthorityName         Authority = "name"
)

// Authorities lists linking registries in canonical order; when an
// annotation carries several identifiers the first one present wins.
var Authorities = []Authority{AuthorityNCBITaxonomy, AuthorityGeoNames, AuthorityOntoBiotope, AuthorityName}

// tagJunk collapses the whitespace and underscore variants model output
// uses for type tags ("has_been_found_on", "Has been found on").
var tagJunk = regexp.MustCompile(`[\s_]+`)

func normalizeTag(tag string) string {
	return strings.ToLower(tagJunk.ReplaceAllString(tag, ""))
}

var entityTags = map[string]EntityType{
	"organism": EntityOrganism,
	"disease":  EntityDisease,
	"habitat":  EntityHabitat,
	"location": EntityLocation,
}

// ParseEntityType resolves a raw type tag against the closed entity set.
func ParseEntityType(tag string) (EntityType, bool) {
	t, ok := entityTags[normalizeTag(tag)]
	return t, ok
}

// relationTags accepts the singular variants produced by models alongside
// the canonical tags.
var relationTags = map[string]RelationType{
	"transmits":       RelationTransmits,
	"transmit":        RelationTransmits,
	"causes":          RelationCauses,
	"cause":           RelationCauses,
	"affects":         RelationAffects,
	"affect":          RelationAffects,
	"hasbeenfoundon":  RelationHasBeenFoundOn,
	"havebeenfoundon": RelationHasBeenFoundOn,
}

// ParseRelationType resolves a raw type tag against the closed relation set.
func ParseRelationType(tag string) (RelationType, bool) {
	t, ok := relationTags[normalizeTag(tag)]
	return t, ok
}

var modalityTags = map[string]Modality{
	"asserted":     ModalityAsserted,
	"negated":      ModalityNegated,
	"hypothetical": ModalityHypothetical,
	"uncertain":    ModalityUncertain,
}

// ParseModality resolves a raw modality tag; the empty tag means Asserted.
func ParseModality(tag string) (Modality, bool) {
	if strings.TrimSpace(tag) == "" {
		return ModalityAsserted, true
	}
	m, ok := modalityTags[normalizeTag(tag)]
	return m, ok
}

// ParseAuthority resolves a linking registry name.
func ParseAuthority(tag string) (Authority, bool) {
	for _, a := range Authorities {
		if strings.EqualFold(string(a), tag) {
			return a, true
		}
	}
	return "", false
}

// Span is a half-open character range [Start, End) into a document's text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of characters covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// In reports whether the span is well formed for a text of the given length.
func (s Span) In(textLen int) bool {
	return s.Start >= 0 && s.Start < s.End && s.End <= textLen
}

// Overlap returns the length of the intersection with another span.
func (s Span) Overlap(o Span) int {
	lo, hi := max(s.Start, o.Start), min(s.End, o.End)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// IoU returns intersection over union of two spans, in [0, 1].
func (s Span) IoU(o Span) float64 {
	inter := s.Overlap(o)
	if inter == 0 {
		return 0
	}
	union := s.Len() + o.Len() - inter
	return float64(inter) / float64(union)
}

// Linking ties a mention to an identifier in an external registry.
type Linking struct {
	Authority Authority `json:"authority"`
	Value     string    `json:"value"`
}

// Entity is a single typed mention in a document.
type Entity struct {
	ID      string     `json:"id"`
	Type    EntityType `json:"type"`
	Span    Span       `json:"span"`
	Mention string     `json:"mention"`
	Linking *Linking   `json:"linking,omitempty"`
}

// Linked reports whether the mention carries a linking identifier.
func (e *Entity) Linked() bool { return e.Linking != nil }

// Chain is a coreference chain: the set of mentions of one referent.
type Chain struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
}

// Argument fills one role of a relation with either an entity mention or,
// for nesting signatures, another relation.
type Argument struct {
	Role     string `json:"role"`
	Entity   string `json:"entity,omitempty"`
	Relation string `json:"relation,omitempty"`
}

// IsRelation reports whether the argument nests another relation.
func (a Argument) IsRelation() bool { return a.Relation != "" }

// Relation is an n-ary typed relation between arguments, qualified by
// modality.
type Relation struct {
	ID        string       `json:"id"`
	Type      RelationType `json:"type"`
	Modality  Modality     `json:"modality"`
	Arguments []Argument   `json:"arguments"`
}

// RoleSpec describes one role slot in a relation signature.
type RoleSpec struct {
	Role       string
	Required   bool
	Repeatable bool
	Entities   []EntityType
	Relations  []RelationType
}

var signatures = map[RelationType][]RoleSpec{
	RelationTransmits: {
		{Role: "agent", Required: true, Entities: []EntityType{EntityOrganism}},
		{Role: "host", Required: true, Entities: []EntityType{EntityOrganism}},
	},
	RelationCauses: {
		{Role: "cause", Required: true, Entities: []EntityType{EntityOrganism}, Relations: []RelationType{RelationTransmits, RelationCauses, RelationHasBeenFoundOn}},
		{Role: "effect", Required: true, Entities: []EntityType{EntityDisease}},
	},
	RelationAffects: {
		{Role: "agent", Required: true, Entities: []EntityType{EntityOrganism, EntityDisease}},
		{Role: "affected", Required: true, Repeatable: true, Entities: []EntityType{EntityOrganism, EntityHabitat, EntityLocation}},
	},
	RelationHasBeenFoundOn: {
		{Role: "subject", Required: true, Entities: []EntityType{EntityOrganism}},
		{Role: "location", Required: true, Entities: []EntityType{EntityLocation, EntityHabitat}},
	},
}

// Signature returns the role slots of a relation type.
func Signature(t RelationType) []RoleSpec { return signatures[t] }
