package authz

// EntityDef describes a governed entity type and the ownership fields
// carried by its records. OwnerFields has one entry for single-owner
// entities and two for entities that also track an assignee.
type EntityDef struct {
	Name        string
	OwnerFields []string
}

// Registry is the closed set of governed entity types. It is fixed by the
// application, not user-configurable.
type Registry struct {
	entities map[string]EntityDef
	order    []string
}

func NewRegistry(defs ...EntityDef) *Registry {
	r := &Registry{entities: make(map[string]EntityDef, len(defs))}
	for _, d := range defs {
		if _, exists := r.entities[d.Name]; exists {
			continue
		}
		r.entities[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r
}

// Lookup is case-sensitive; unknown entity types are simply not governed.
func (r *Registry) Lookup(name string) (EntityDef, bool) {
	def, ok := r.entities[name]
	return def, ok
}

func (r *Registry) Contains(name string) bool {
	_, ok := r.entities[name]
	return ok
}

// EntityTypes returns the governed entity type names in registration order.
func (r *Registry) EntityTypes() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// DefaultRegistry lists the CRM entity types governed by the engine.
// Activities and support requests carry a second ownership field for the
// assignee; notes use the author as their single ownership field.
func DefaultRegistry() *Registry {
	return NewRegistry(
		EntityDef{Name: "Contact", OwnerFields: []string{"owner_id"}},
		EntityDef{Name: "Lead", OwnerFields: []string{"owner_id"}},
		EntityDef{Name: "Deal", OwnerFields: []string{"owner_id"}},
		EntityDef{Name: "Account", OwnerFields: []string{"owner_id"}},
		EntityDef{Name: "Activity", OwnerFields: []string{"owner_id", "assigned_to_id"}},
		EntityDef{Name: "SupportRequest", OwnerFields: []string{"owner_id", "assigned_to_id"}},
		EntityDef{Name: "Note", OwnerFields: []string{"author_id"}},
	)
}
