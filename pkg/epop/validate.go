package epop

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Index validates the document against the annotation schema and builds the
// lookup maps. A document either indexes completely or is rejected with a
// LoadError; there is no partial success.
func (d *Document) Index() error {
	d.entityByID = make(map[string]*Entity, len(d.Entities))
	d.relationByID = make(map[string]*Relation, len(d.Relations))
	d.chainByMember = make(map[string]*Chain)

	for i := range d.Entities {
		e := &d.Entities[i]
		if e.ID == "" {
			return NewLoadError(DanglingReference, d.ID, "entity without ID at index %d", i)
		}
		if _, dup := d.entityByID[e.ID]; dup {
			return NewLoadError(DanglingReference, d.ID, "duplicate entity ID %s", e.ID)
		}
		if _, ok := ParseEntityType(string(e.Type)); !ok {
			return NewLoadError(UnknownTypeTag, d.ID, "entity %s has unknown type %q", e.ID, e.Type)
		}
		if !e.Span.In(len(d.Text)) {
			return NewLoadError(MalformedSpan, d.ID, "entity %s span [%d,%d) outside text of length %d",
				e.ID, e.Span.Start, e.Span.End, len(d.Text))
		}
		if e.Linking != nil {
			if _, ok := ParseAuthority(string(e.Linking.Authority)); !ok {
				return NewLoadError(UnknownTypeTag, d.ID, "entity %s linked to unknown registry %q", e.ID, e.Linking.Authority)
			}
		}
		d.entityByID[e.ID] = e
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	for i := range d.Chains {
		ch := &d.Chains[i]
		for _, member := range ch.Members {
			if _, ok := d.entityByID[member]; !ok {
				return NewLoadError(DanglingReference, d.ID, "chain %s references unknown entity %s", ch.ID, member)
			}
			// chains must be pairwise disjoint
			if !seen.Add(member) {
				return NewLoadError(DanglingReference, d.ID, "entity %s appears in more than one chain", member)
			}
			d.chainByMember[member] = ch
		}
	}

	for i := range d.Relations {
		r := &d.Relations[i]
		if r.ID == "" {
			return NewLoadError(DanglingReference, d.ID, "relation without ID at index %d", i)
		}
		if _, dup := d.relationByID[r.ID]; dup {
			return NewLoadError(DanglingReference, d.ID, "duplicate relation ID %s", r.ID)
		}
		if _, ok := ParseRelationType(string(r.Type)); !ok {
			return NewLoadError(UnknownTypeTag, d.ID, "relation %s has unknown type %q", r.ID, r.Type)
		}
		if _, ok := ParseModality(string(r.Modality)); !ok {
			return NewLoadError(UnknownTypeTag, d.ID, "relation %s has unknown modality %q", r.ID, r.Modality)
		}
		d.relationByID[r.ID] = r
	}

	for i := range d.Relations {
		if err := d.validateArguments(&d.Relations[i]); err != nil {
			return err
		}
	}

	order, err := d.topoOrder()
	if err != nil {
		return err
	}
	d.relationOrder = order
	return nil
}

// validateArguments checks every argument of a relation against its
// signature: known role, cardinality, filler kind, resolvable reference.
func (d *Document) validateArguments(r *Relation) error {
	spec := Signature(r.Type)
	byRole := make(map[string]int, len(r.Arguments))

	for _, arg := range r.Arguments {
		slot := roleSlot(spec, arg.Role)
		if slot == nil {
			return NewLoadError(UnknownTypeTag, d.ID, "relation %s has no role %q in its signature", r.ID, arg.Role)
		}
		byRole[arg.Role]++
		if byRole[arg.Role] > 1 && !slot.Repeatable {
			return NewLoadError(UnknownTypeTag, d.ID, "relation %s repeats role %q", r.ID, arg.Role)
		}

		switch {
		case arg.IsRelation():
			nested, ok := d.relationByID[arg.Relation]
			if !ok {
				return NewLoadError(DanglingReference, d.ID, "relation %s role %q references unknown relation %s",
					r.ID, arg.Role, arg.Relation)
			}
			if !relationKindAllowed(slot, nested.Type) {
				return NewLoadError(UnknownTypeTag, d.ID, "relation %s role %q cannot take a %s relation",
					r.ID, arg.Role, nested.Type)
			}
		case arg.Entity != "":
			filler, ok := d.entityByID[arg.Entity]
			if !ok {
				return NewLoadError(DanglingReference, d.ID, "relation %s role %q references unknown entity %s",
					r.ID, arg.Role, arg.Entity)
			}
			if !entityKindAllowed(slot, filler.Type) {
				return NewLoadError(UnknownTypeTag, d.ID, "relation %s role %q cannot take a %s entity",
					r.ID, arg.Role, filler.Type)
			}
		default:
			return NewLoadError(DanglingReference, d.ID, "relation %s role %q has an empty argument", r.ID, arg.Role)
		}
	}

	for _, slot := range spec {
		if slot.Required && byRole[slot.Role] == 0 {
			return NewLoadError(UnknownTypeTag, d.ID, "relation %s misses required role %q", r.ID, slot.Role)
		}
	}
	return nil
}

// topoOrder orders relations innermost-first along argument references
// using Kahn's algorithm; a leftover relation means a reference cycle.
func (d *Document) topoOrder() ([]string, error) {
	indegree := make(map[string]int, len(d.Relations))
	dependents := make(map[string][]string)

	for i := range d.Relations {
		r := &d.Relations[i]
		indegree[r.ID] += 0
		for _, arg := range r.Arguments {
			if arg.IsRelation() {
				indegree[r.ID]++
				dependents[arg.Relation] = append(dependents[arg.Relation], r.ID)
			}
		}
	}

	queue := make([]string, 0, len(indegree))
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(indegree))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)

		next := dependents[current]
		sort.Strings(next)
		for _, dep := range next {
			indegree[dep]--
			if indegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(indegree) {
		cyclic := make([]string, 0)
		for id, deg := range indegree {
			if deg > 0 {
				cyclic = append(cyclic, id)
			}
		}
		sort.Strings(cyclic)
		return nil, NewLoadError(CyclicRelationReference, d.ID, "relations %v reference each other in a cycle", cyclic)
	}
	return order, nil
}

func roleSlot(spec []RoleSpec, role string) *RoleSpec {
	for i := range spec {
		if spec[i].Role == role {
			return &spec[i]
		}
	}
	return nil
}

func entityKindAllowed(slot *RoleSpec, t EntityType) bool {
	for _, k := range slot.Entities {
		if k == t {
			return true
		}
	}
	return false
}

func relationKindAllowed(slot *RoleSpec, t RelationType) bool {
	for _, k := range slot.Relations {
		if k == t {
			return true
		}
	}
	return false
}
