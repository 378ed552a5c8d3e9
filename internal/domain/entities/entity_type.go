package entities

import "fmt"

// EntityType identifies one variant of the knowledge base entity union.
type EntityType string

const (
	EntityConcept                EntityType = "concept"
	EntityRelationship           EntityType = "relationship"
	EntityIndividualProperty     EntityType = "individual_property"
	EntityIndividualRelationship EntityType = "individual_relationship"
)

// EntityTypes lists every entity type in dependency order: a type may only
// reference types that appear before it.
var EntityTypes = []EntityType{
	EntityConcept,
	EntityRelationship,
	EntityIndividualProperty,
	EntityIndividualRelationship,
}

// Rank returns the dependency order of the type, or -1 for an unknown type.
func (t EntityType) Rank() int {
	switch t {
	case EntityConcept:
		return 0
	case EntityRelationship:
		return 1
	case EntityIndividualProperty:
		return 2
	case EntityIndividualRelationship:
		return 3
	default:
		return -1
	}
}

// IsValid reports whether t is one of the known entity types.
func (t EntityType) IsValid() bool {
	return t.Rank() >= 0
}

// ParseEntityType converts a string into an EntityType.
// The short aliases "property" and "individual" are accepted for convenience.
func ParseEntityType(s string) (EntityType, error) {
	switch s {
	case "property":
		return EntityIndividualProperty, nil
	case "individual":
		return EntityIndividualRelationship, nil
	}
	t := EntityType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}
