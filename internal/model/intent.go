// Package model defines the core domain models used throughout the application.
package model

// Intent is the classified action derived from user text. It covers the
// cross product of {create, read, update, delete} x {payee, category} plus
// three control intents.
type Intent string

// Intent constants.
const (
	IntentCreatePayee    Intent = "create_payee"
	IntentReadPayee      Intent = "read_payee"
	IntentUpdatePayee    Intent = "update_payee"
	IntentDeletePayee    Intent = "delete_payee"
	IntentCreateCategory Intent = "create_category"
	IntentReadCategory   Intent = "read_category"
	IntentUpdateCategory Intent = "update_category"
	IntentDeleteCategory Intent = "delete_category"
	IntentClarify        Intent = "clarify"
	IntentHelp           Intent = "help"
	IntentUnknown        Intent = "unknown"
)

// AllIntents lists every valid intent value.
var AllIntents = []Intent{
	IntentCreatePayee, IntentReadPayee, IntentUpdatePayee, IntentDeletePayee,
	IntentCreateCategory, IntentReadCategory, IntentUpdateCategory, IntentDeleteCategory,
	IntentClarify, IntentHelp, IntentUnknown,
}

// IsValid reports whether the intent is one of the enumerated values.
func (i Intent) IsValid() bool {
	for _, v := range AllIntents {
		if i == v {
			return true
		}
	}
	return false
}

// IsControl reports whether the intent is one of the control intents
// (clarify, help, unknown) rather than a CRUD intent.
func (i Intent) IsControl() bool {
	return i == IntentClarify || i == IntentHelp || i == IntentUnknown
}

// Action returns the CRUD action type for this intent, or false for
// control intents.
func (i Intent) Action() (ActionType, bool) {
	switch i {
	case IntentCreatePayee, IntentCreateCategory:
		return ActionCreate, true
	case IntentReadPayee, IntentReadCategory:
		return ActionRead, true
	case IntentUpdatePayee, IntentUpdateCategory:
		return ActionUpdate, true
	case IntentDeletePayee, IntentDeleteCategory:
		return ActionDelete, true
	default:
		return "", false
	}
}

// EntityKind returns the business entity this intent operates on, or false
// for control intents.
func (i Intent) EntityKind() (EntityKind, bool) {
	switch i {
	case IntentCreatePayee, IntentReadPayee, IntentUpdatePayee, IntentDeletePayee:
		return KindPayee, true
	case IntentCreateCategory, IntentReadCategory, IntentUpdateCategory, IntentDeleteCategory:
		return KindCategory, true
	default:
		return "", false
	}
}

// requiredFields maps each intent to the entity types the extractor must
// produce before the intent can be executed.
var requiredFields = map[Intent][]EntityType{
	IntentCreatePayee:    {EntityName},
	IntentReadPayee:      {},
	IntentUpdatePayee:    {EntityName, EntityID},
	IntentDeletePayee:    {EntityName, EntityID},
	IntentCreateCategory: {EntityName},
	IntentReadCategory:   {},
	IntentUpdateCategory: {EntityName, EntityID},
	IntentDeleteCategory: {EntityName, EntityID},
	IntentClarify:        {},
	IntentHelp:           {},
	IntentUnknown:        {},
}

// RequiredFields returns the entity types required to act on the intent.
// The result is a copy; callers may mutate it freely.
func (i Intent) RequiredFields() []EntityType {
	fields, ok := requiredFields[i]
	if !ok {
		return []EntityType{}
	}
	out := make([]EntityType, len(fields))
	copy(out, fields)
	return out
}
