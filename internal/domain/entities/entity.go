package entities

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// EntityKey identifies an entity within a knowledge base.
type EntityKey struct {
	Type EntityType `json:"entity_type"`
	ID   int64      `json:"entity_id"`
}

// String renders the key as "type/id".
func (k EntityKey) String() string {
	return fmt.Sprintf("%s/%d", k.Type, k.ID)
}

// Less orders keys by dependency rank, then by id.
func (k EntityKey) Less(o EntityKey) bool {
	if k.Type.Rank() != o.Type.Rank() {
		return k.Type.Rank() < o.Type.Rank()
	}
	return k.ID < o.ID
}

// ParseEntityKey parses a "type/id" string.
func ParseEntityKey(s string) (EntityKey, error) {
	typ, rawID, ok := strings.Cut(s, "/")
	if !ok {
		return EntityKey{}, fmt.Errorf("entity key %q: expected type/id", s)
	}
	t, err := ParseEntityType(typ)
	if err != nil {
		return EntityKey{}, err
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id < 0 {
		return EntityKey{}, fmt.Errorf("entity key %q: invalid id", s)
	}
	return EntityKey{Type: t, ID: id}, nil
}

// Entity is one live or captured entity.
type Entity struct {
	Key    EntityKey
	Fields Fields
}

type entityJSON struct {
	EntityType EntityType  `json:"entity_type"`
	EntityID   int64       `json:"entity_id"`
	Fields     FieldValues `json:"fields"`
}

// MarshalJSON encodes the entity with its fields as a flat value map.
func (e Entity) MarshalJSON() ([]byte, error) {
	var values FieldValues
	if e.Fields != nil {
		values = e.Fields.Values()
	}
	return json.Marshal(entityJSON{EntityType: e.Key.Type, EntityID: e.Key.ID, Fields: values})
}

// UnmarshalJSON decodes an entity, rebuilding the typed variant.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw entityJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f, err := FieldsFromValues(raw.EntityType, raw.Fields)
	if err != nil {
		return fmt.Errorf("decoding %s/%d: %w", raw.EntityType, raw.EntityID, err)
	}
	e.Key = EntityKey{Type: raw.EntityType, ID: raw.EntityID}
	e.Fields = f
	return nil
}

// EntityMap is a full entity state keyed by entity.
type EntityMap map[EntityKey]Fields

// Keys returns the keys in dependency order.
func (m EntityMap) Keys() []EntityKey {
	keys := make([]EntityKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// Entities returns the entries in key order.
func (m EntityMap) Entities() []Entity {
	out := make([]Entity, 0, len(m))
	for _, k := range m.Keys() {
		out = append(out, Entity{Key: k, Fields: m[k]})
	}
	return out
}

// Clone returns a copy of the map. Variants are values, so the copy is deep.
func (m EntityMap) Clone() EntityMap {
	out := make(EntityMap, len(m))
	for k, f := range m {
		out[k] = f
	}
	return out
}

// MaxID returns the largest id of the given type, or 0.
func (m EntityMap) MaxID(t EntityType) int64 {
	var highest int64
	for k := range m {
		if k.Type == t && k.ID > highest {
			highest = k.ID
		}
	}
	return highest
}

// Equal reports whether both maps hold the same keys with equal fields.
func (m EntityMap) Equal(o EntityMap) bool {
	if len(m) != len(o) {
		return false
	}
	for k, f := range m {
		if !EqualFields(f, o[k]) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the map as an ordered list so equal states encode to
// identical bytes.
func (m EntityMap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Entities())
}

// UnmarshalJSON decodes the ordered list form.
func (m *EntityMap) UnmarshalJSON(data []byte) error {
	var list []Entity
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	out := make(EntityMap, len(list))
	for _, e := range list {
		if _, dup := out[e.Key]; dup {
			return fmt.Errorf("duplicate entity %s", e.Key)
		}
		out[e.Key] = e.Fields
	}
	*m = out
	return nil
}
