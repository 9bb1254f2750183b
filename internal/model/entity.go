package model

// EntityType identifies the kind of information held by an extracted entity.
// This is extraction-sense "entity" (a typed span of user text), not a
// business record.
type EntityType string

// Entity type constants.
const (
	EntityName        EntityType = "name"
	EntityEmail       EntityType = "email"
	EntityPhone       EntityType = "phone"
	EntityAddress     EntityType = "address"
	EntityCategory    EntityType = "category"
	EntityID          EntityType = "id"
	EntityDescription EntityType = "description"
)

// ExtractedEntity is a typed, valued span of information pulled from user
// text. Entities have no identity beyond their position in a result; they
// are always replaced wholesale, never mutated in place.
type ExtractedEntity struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Context    string     `json:"context,omitempty"`
	Confidence float64    `json:"confidence"`
}

// IntentClassification is the classifier's output for one user turn.
// RequiresClarification is always true when Intent is clarify; it should be
// true when confidence is low, but the two signals may disagree.
type IntentClassification struct {
	Intent                 Intent            `json:"intent"`
	Entities               []ExtractedEntity `json:"entities"`
	ClarificationQuestions []string          `json:"clarificationQuestions"`
	Confidence             float64           `json:"confidence"`
	RequiresClarification  bool              `json:"requiresClarification"`
}

// EntityExtractionResult is the extractor's output for one user turn.
// MissingRequiredFields is a structural diff of the intent's required-field
// set against the entity types present with non-empty values.
type EntityExtractionResult struct {
	Entities              []ExtractedEntity `json:"entities"`
	AmbiguousEntities     []string          `json:"ambiguousEntities"`
	MissingRequiredFields []string          `json:"missingRequiredFields"`
	Confidence            float64           `json:"confidence"`
}

// PresentFields returns the set of entity types present with a non-empty
// value.
func (r EntityExtractionResult) PresentFields() map[EntityType]bool {
	present := make(map[EntityType]bool, len(r.Entities))
	for _, e := range r.Entities {
		if e.Value != "" {
			present[e.Type] = true
		}
	}
	return present
}

// ValueOf returns the value of the first entity of the given type with a
// non-empty value, or "" if none exists.
func (r EntityExtractionResult) ValueOf(t EntityType) string {
	for _, e := range r.Entities {
		if e.Type == t && e.Value != "" {
			return e.Value
		}
	}
	return ""
}
