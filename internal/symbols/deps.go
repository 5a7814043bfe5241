package symbols

// AddDependentNotify records that dependent's layout must be recomputed
// when dependency changes. Edges are reference counted, not boolean: a
// type containing the same dependency twice (two array fields of one
// element type) must survive a single removal.
func (s *Store) AddDependentNotify(dependency, dependent SymbolID) {
	if !dependency.IsValid() || !dependent.IsValid() {
		return
	}
	set := s.deps[dependency]
	if set == nil {
		set = make(map[SymbolID]int, 4)
		s.deps[dependency] = set
	}
	set[dependent]++
}

// RemoveDependentNotify decrements the edge refcount, dropping the edge at
// zero. Removing an edge that was never added is a no-op.
func (s *Store) RemoveDependentNotify(dependency, dependent SymbolID) {
	set := s.deps[dependency]
	if set == nil {
		return
	}
	if set[dependent] <= 1 {
		delete(set, dependent)
		if len(set) == 0 {
			delete(s.deps, dependency)
		}
		return
	}
	set[dependent]--
}

// DependentCount reports the current edge refcount, for the add/remove
// symmetry invariant.
func (s *Store) DependentCount(dependency, dependent SymbolID) int {
	return s.deps[dependency][dependent]
}

// NotifyDependentChange recomputes id's own derived state through the
// layout hook, then recursively notifies everything that depends on id.
// This is how editing a nested type cascades to every enclosing type
// without manual propagation by the caller. Reaching a symbol through
// multiple paths revisits it, which is harmless; a true dependency cycle
// recurses without bound, an accepted non-goal of the type graph.
func (s *Store) NotifyDependentChange(id SymbolID) {
	if s.syms.Get(id) == nil {
		return
	}
	if s.recompute != nil {
		s.recompute(s, id)
	}
	set := s.deps[id]
	if len(set) == 0 {
		return
	}
	dependents := make([]SymbolID, 0, len(set))
	for dep := range set {
		dependents = append(dependents, dep)
	}
	for _, dep := range dependents {
		s.NotifyDependentChange(dep)
	}
}
