package sim

import "fmt"

// TypeID is a dense molecule-type index assigned in registration order.
type TypeID int

// MoleculeType describes one registered species.
type MoleculeType struct {
	Name string
	// Count is the number of instances; fixed for the lifetime of a run.
	Count int
	// Movable types are relocated by the engine. Fixed types ("hosts") keep
	// the cell they were placed on but still interact and bind.
	Movable bool
	// Anchors pins the first len(Anchors) instances to these coordinates.
	// Remaining instances are placed at random.
	Anchors []Coord
}

// label returns the display name, or the numeric id when unnamed.
func (m MoleculeType) label(id TypeID) string {
	if m.Name != "" {
		return m.Name
	}
	return fmt.Sprintf("%d", id)
}

// Registry is the table of molecule types for one grid. Slots are indexed
// by TypeID so lookups are O(1).
type Registry struct {
	capacity int
	types    []MoleculeType
	total    int
}

// NewRegistry creates an empty registry bounded by the number of grid cells.
func NewRegistry(capacity int) *Registry {
	return &Registry{capacity: capacity}
}

// Register adds a molecule type and returns its id. Fails with
// ErrCapacityExceeded when the cumulative count would exceed the grid
// capacity; nothing is registered in that case.
func (r *Registry) Register(m MoleculeType) (TypeID, error) {
	id := TypeID(len(r.types))
	field := fmt.Sprintf("molecules[%d]", id)
	if m.Count < 0 {
		return 0, configErrorf(field+".count", ErrInvalidParameter, "must be non-negative, got %d", m.Count)
	}
	if r.total+m.Count > r.capacity {
		return 0, configErrorf(field+".count", ErrCapacityExceeded,
			"%d instances requested, %d of %d cells free", m.Count, r.capacity-r.total, r.capacity)
	}
	if len(m.Anchors) > m.Count {
		return 0, configErrorf(field+".anchors", ErrAnchorCountExceed, "%d anchors for %d instances", len(m.Anchors), m.Count)
	}
	m.Anchors = append([]Coord(nil), m.Anchors...)
	r.types = append(r.types, m)
	r.total += m.Count
	return id, nil
}

// Len returns the number of registered types.
func (r *Registry) Len() int { return len(r.types) }

// Capacity returns the number of grid cells available to instances.
func (r *Registry) Capacity() int { return r.capacity }

// TotalCount returns the sum of instance counts over all types.
func (r *Registry) TotalCount() int { return r.total }

// Has reports whether id refers to a registered type.
func (r *Registry) Has(id TypeID) bool {
	return id >= 0 && int(id) < len(r.types)
}

// Type returns the registered type. Panics on an unknown id; validate
// external ids with Has first.
func (r *Registry) Type(id TypeID) MoleculeType {
	if !r.Has(id) {
		panic(fmt.Sprintf("Registry.Type: unknown type id %d", id))
	}
	return r.types[id]
}

// Name returns the display label of a type.
func (r *Registry) Name(id TypeID) string {
	return r.Type(id).label(id)
}

// Lookup resolves a type by name.
func (r *Registry) Lookup(name string) (TypeID, bool) {
	for i, m := range r.types {
		if m.Name == name {
			return TypeID(i), true
		}
	}
	return 0, false
}

// MovableTypes lists the ids of movable types in ascending order.
func (r *Registry) MovableTypes() []TypeID {
	var ids []TypeID
	for i, m := range r.types {
		if m.Movable {
			ids = append(ids, TypeID(i))
		}
	}
	return ids
}
