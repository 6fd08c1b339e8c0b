package core

import "strings"

// EntityType is the closed set of categories an extracted entity may carry.
type EntityType string

const (
	EntityPerson       EntityType = "Person"
	EntityOrganization EntityType = "Organization"
	EntityLocation     EntityType = "Location"
	EntityProduct      EntityType = "Product"
	EntityEvent        EntityType = "Event"
	EntityDate         EntityType = "Date"
	EntityWork         EntityType = "Work"
	EntityConcept      EntityType = "Concept"
	EntityResource     EntityType = "Resource"
	EntityCategory     EntityType = "Category"
	EntityOperation    EntityType = "Operation"
)

// EntityTypes lists every valid entity category, in a stable order.
var EntityTypes = []EntityType{
	EntityPerson, EntityOrganization, EntityLocation, EntityProduct,
	EntityEvent, EntityDate, EntityWork, EntityConcept,
	EntityResource, EntityCategory, EntityOperation,
}

// entityAliases maps common free-form labels onto the closed set.
var entityAliases = map[string]EntityType{
	"people":   EntityPerson,
	"person":   EntityPerson,
	"human":    EntityPerson,
	"org":      EntityOrganization,
	"company":  EntityOrganization,
	"place":    EntityLocation,
	"geo":      EntityLocation,
	"time":     EntityDate,
	"datetime": EntityDate,
	"book":     EntityWork,
	"movie":    EntityWork,
	"idea":     EntityConcept,
}

// NormalizeEntityType maps a free-form label onto the closed entity-type set.
// Matching is case-insensitive; unmapped labels fall back to Concept rather
// than failing.
func NormalizeEntityType(label string) EntityType {
	label = strings.TrimSpace(label)
	if label == "" {
		return EntityConcept
	}

	lower := strings.ToLower(label)
	for _, t := range EntityTypes {
		if strings.ToLower(string(t)) == lower {
			return t
		}
	}

	if t, ok := entityAliases[lower]; ok {
		return t
	}

	return EntityConcept
}
