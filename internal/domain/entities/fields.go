package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"unicode/utf8"
)

// FieldValues holds the scalar field values of one entity keyed by field name.
// Values are strings, int64, float64, bools or nil.
type FieldValues map[string]any

// Fields is the closed set of entity variants. Only the four variant structs
// in this package implement it.
type Fields interface {
	EntityType() EntityType
	Values() FieldValues
	sealed()
}

// ConceptFields is a named class of things in the knowledge base.
type ConceptFields struct {
	Name              string `json:"name"`
	Definition        string `json:"definition"`
	SimpleExplanation string `json:"simple_explanation"`
	Examples          string `json:"examples"`
	Category          string `json:"category"`
	Color             string `json:"color"`
}

// RelationshipFields is a typed edge between two concepts.
type RelationshipFields struct {
	SourceConceptID int64  `json:"source_concept_id"`
	TargetConceptID int64  `json:"target_concept_id"`
	RelationType    string `json:"relation_type"`
	Label           string `json:"label"`
	Description     string `json:"description"`
	Bidirectional   bool   `json:"bidirectional"`
}

// IndividualPropertyFields is a property value carried by an individual of a concept.
type IndividualPropertyFields struct {
	ConceptID      int64  `json:"concept_id"`
	IndividualName string `json:"individual_name"`
	Name           string `json:"name"`
	Value          string `json:"value"`
	DataType       string `json:"data_type"`
}

// IndividualRelationshipFields links two individuals through a relationship.
type IndividualRelationshipFields struct {
	RelationshipID   int64  `json:"relationship_id"`
	SourceIndividual string `json:"source_individual"`
	TargetIndividual string `json:"target_individual"`
	Description      string `json:"description"`
}

func (ConceptFields) EntityType() EntityType                { return EntityConcept }
func (RelationshipFields) EntityType() EntityType           { return EntityRelationship }
func (IndividualPropertyFields) EntityType() EntityType     { return EntityIndividualProperty }
func (IndividualRelationshipFields) EntityType() EntityType { return EntityIndividualRelationship }

func (ConceptFields) sealed()                {}
func (RelationshipFields) sealed()           {}
func (IndividualPropertyFields) sealed()     {}
func (IndividualRelationshipFields) sealed() {}

// Values returns the concept's fields as a map.
func (f ConceptFields) Values() FieldValues {
	return FieldValues{
		"name":               f.Name,
		"definition":         f.Definition,
		"simple_explanation": f.SimpleExplanation,
		"examples":           f.Examples,
		"category":           f.Category,
		"color":              f.Color,
	}
}

// Values returns the relationship's fields as a map.
func (f RelationshipFields) Values() FieldValues {
	return FieldValues{
		"source_concept_id": f.SourceConceptID,
		"target_concept_id": f.TargetConceptID,
		"relation_type":     f.RelationType,
		"label":             f.Label,
		"description":       f.Description,
		"bidirectional":     f.Bidirectional,
	}
}

// Values returns the property's fields as a map.
func (f IndividualPropertyFields) Values() FieldValues {
	return FieldValues{
		"concept_id":      f.ConceptID,
		"individual_name": f.IndividualName,
		"name":            f.Name,
		"value":           f.Value,
		"data_type":       f.DataType,
	}
}

// Values returns the individual relationship's fields as a map.
func (f IndividualRelationshipFields) Values() FieldValues {
	return FieldValues{
		"relationship_id":   f.RelationshipID,
		"source_individual": f.SourceIndividual,
		"target_individual": f.TargetIndividual,
		"description":       f.Description,
	}
}

// FieldsFromValues builds the variant for t from a field map. Missing fields
// take their zero value; unknown fields and values of the wrong kind are errors.
func FieldsFromValues(t EntityType, values FieldValues) (Fields, error) {
	d := &fieldDecoder{values: values}

	var f Fields
	switch t {
	case EntityConcept:
		f = ConceptFields{
			Name:              d.str("name"),
			Definition:        d.str("definition"),
			SimpleExplanation: d.str("simple_explanation"),
			Examples:          d.str("examples"),
			Category:          d.str("category"),
			Color:             d.str("color"),
		}
	case EntityRelationship:
		f = RelationshipFields{
			SourceConceptID: d.integer("source_concept_id"),
			TargetConceptID: d.integer("target_concept_id"),
			RelationType:    d.str("relation_type"),
			Label:           d.str("label"),
			Description:     d.str("description"),
			Bidirectional:   d.boolean("bidirectional"),
		}
	case EntityIndividualProperty:
		f = IndividualPropertyFields{
			ConceptID:      d.integer("concept_id"),
			IndividualName: d.str("individual_name"),
			Name:           d.str("name"),
			Value:          d.str("value"),
			DataType:       d.str("data_type"),
		}
	case EntityIndividualRelationship:
		f = IndividualRelationshipFields{
			RelationshipID:   d.integer("relationship_id"),
			SourceIndividual: d.str("source_individual"),
			TargetIndividual: d.str("target_individual"),
			Description:      d.str("description"),
		}
	default:
		return nil, fmt.Errorf("unknown entity type %q", t)
	}

	known := f.Values()
	for _, name := range sortedNames(values) {
		if _, ok := known[name]; !ok {
			d.fail(fmt.Errorf("unknown %s field %q", t, name))
		}
	}

	if len(d.errs) > 0 {
		return nil, errors.Join(d.errs...)
	}
	return f, nil
}

// ParseFieldString converts the text form of a field value, as typed on a
// command line or found in a CSV cell, to the Go type of the field.
func ParseFieldString(t EntityType, name, s string) (any, error) {
	zero, err := FieldsFromValues(t, nil)
	if err != nil {
		return nil, err
	}
	like, ok := zero.Values()[name]
	if !ok {
		return nil, fmt.Errorf("unknown %s field %q", t, name)
	}

	switch like.(type) {
	case int64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %q: invalid integer %q", name, s)
		}
		return v, nil
	case bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("field %q: invalid boolean %q", name, s)
		}
		return v, nil
	default:
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("field %q: invalid UTF-8", name)
		}
		return s, nil
	}
}

// MergeValues overlays patch onto f and returns the resulting variant.
func MergeValues(f Fields, patch FieldValues) (Fields, error) {
	values := f.Values()
	for name, v := range patch {
		values[name] = v
	}
	return FieldsFromValues(f.EntityType(), values)
}

// References returns the keys of the entities f points at.
func References(f Fields) []EntityKey {
	refs := ReferenceFields(f)
	if refs == nil {
		return nil
	}
	keys := make([]EntityKey, len(refs))
	for i, r := range refs {
		keys[i] = r.Key
	}
	return keys
}

// Reference is a field of one entity that holds the id of another.
type Reference struct {
	Field string
	Key   EntityKey
}

// ReferenceFields is References with the name of each referencing field.
func ReferenceFields(f Fields) []Reference {
	switch v := f.(type) {
	case RelationshipFields:
		return []Reference{
			{Field: "source_concept_id", Key: EntityKey{Type: EntityConcept, ID: v.SourceConceptID}},
			{Field: "target_concept_id", Key: EntityKey{Type: EntityConcept, ID: v.TargetConceptID}},
		}
	case IndividualPropertyFields:
		return []Reference{{Field: "concept_id", Key: EntityKey{Type: EntityConcept, ID: v.ConceptID}}}
	case IndividualRelationshipFields:
		return []Reference{{Field: "relationship_id", Key: EntityKey{Type: EntityRelationship, ID: v.RelationshipID}}}
	default:
		return nil
	}
}

// DisplayName returns a short human readable label for an entity.
func DisplayName(f Fields) string {
	switch v := f.(type) {
	case ConceptFields:
		return v.Name
	case RelationshipFields:
		if v.Label != "" {
			return v.Label
		}
		return v.RelationType
	case IndividualPropertyFields:
		return v.IndividualName + "." + v.Name
	case IndividualRelationshipFields:
		return v.SourceIndividual + " -> " + v.TargetIndividual
	default:
		return ""
	}
}

// EqualValue compares two scalar field values. Integral numbers compare as
// int64, so an int64 read from storage equals the float64 decoded from a
// payload. Strings compare byte for byte.
func EqualValue(a, b any) bool {
	return reflect.DeepEqual(normalizeValue(a), normalizeValue(b))
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return normalizeValue(float64(x))
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < math.MaxInt64 {
			return int64(x)
		}
		return x
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return normalizeValue(f)
		}
		return x.String()
	default:
		return v
	}
}

// EqualFields reports whether two variants carry the same type and values.
func EqualFields(a, b Fields) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.EntityType() != b.EntityType() {
		return false
	}
	av, bv := a.Values(), b.Values()
	for name, v := range av {
		if !EqualValue(v, bv[name]) {
			return false
		}
	}
	return true
}

// Names returns the field names in ascending order.
func (v FieldValues) Names() []string {
	return sortedNames(v)
}

// Clone returns a shallow copy of v.
func (v FieldValues) Clone() FieldValues {
	if v == nil {
		return nil
	}
	out := make(FieldValues, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// UnmarshalJSON decodes numbers as int64 when they are integral so that
// values survive a storage round trip with the same Go type.
func (v *FieldValues) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		*v = nil
		return nil
	}

	out := make(FieldValues, len(raw))
	for name, val := range raw {
		num, ok := val.(json.Number)
		if !ok {
			out[name] = val
			continue
		}
		if i, err := num.Int64(); err == nil {
			out[name] = i
			continue
		}
		f, err := num.Float64()
		if err != nil {
			return fmt.Errorf("decoding field %q: %w", name, err)
		}
		out[name] = f
	}
	*v = out
	return nil
}

func sortedNames(values FieldValues) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fieldDecoder reads typed values out of a FieldValues map and collects errors.
type fieldDecoder struct {
	values FieldValues
	errs   []error
}

func (d *fieldDecoder) fail(err error) {
	d.errs = append(d.errs, err)
}

func (d *fieldDecoder) str(name string) string {
	switch v := d.values[name].(type) {
	case nil:
		return ""
	case string:
		if !utf8.ValidString(v) {
			d.fail(fmt.Errorf("field %q: invalid UTF-8", name))
			return ""
		}
		return v
	default:
		d.fail(fmt.Errorf("field %q: expected string, got %T", name, v))
		return ""
	}
}

func (d *fieldDecoder) integer(name string) int64 {
	switch v := d.values[name].(type) {
	case nil:
		return 0
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			d.fail(fmt.Errorf("field %q: expected integer, got %v", name, v))
			return 0
		}
		return int64(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			d.fail(fmt.Errorf("field %q: expected integer, got %s", name, v))
		}
		return i
	default:
		d.fail(fmt.Errorf("field %q: expected integer, got %T", name, v))
		return 0
	}
}

func (d *fieldDecoder) boolean(name string) bool {
	switch v := d.values[name].(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		d.fail(fmt.Errorf("field %q: expected bool, got %T", name, v))
		return false
	}
}
