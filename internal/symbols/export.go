package symbols

import (
	"github.com/rs/zerolog"

	"symforge/internal/symerr"
)

// Record is the serializable form of one live arena slot. Ids are part of
// the record because external references depend on them surviving a
// save/load cycle, dead slots included.
type Record struct {
	ID  SymbolID
	Sym Symbol
}

// DepEdge is one reference-counted edge of the dependency graph.
type DepEdge struct {
	Dependency SymbolID
	Dependent  SymbolID
	Count      int
}

// Export returns every live symbol with its id in allocation order, plus
// the arena's total slot count so gaps can be reproduced.
func (s *Store) Export() ([]Record, int) {
	records := make([]Record, 0, s.syms.Len())
	s.syms.Alive(func(id SymbolID, sym *Symbol) bool {
		records = append(records, Record{ID: id, Sym: *sym})
		return true
	})
	return records, s.syms.Len()
}

// ExportDeps returns the dependency graph as a flat edge list.
func (s *Store) ExportDeps() []DepEdge {
	var edges []DepEdge
	for dependency, dependents := range s.deps {
		for dependent, count := range dependents {
			edges = append(edges, DepEdge{Dependency: dependency, Dependent: dependent, Count: count})
		}
	}
	return edges
}

// Restore rebuilds a store from an export. Slot ids are reproduced
// exactly: missing ids inside the slot range come back as dead slots, so
// zombie references stay zombies. Records must be sorted by id.
func Restore(h Hints, opts Options, log zerolog.Logger, records []Record, slots int, deps []DepEdge) (*Store, error) {
	if h.Symbols == 0 && slots > 0 {
		h.Symbols = uint32(slots) //nolint:gosec // slots came from an arena length
	}
	s := NewStore(h, opts, log)
	next := 0
	for i := 1; i <= slots; i++ {
		id := SymbolID(uint32(i)) //nolint:gosec // bounded by slots, itself a former arena length
		if next < len(records) && records[next].ID == id {
			sym := records[next].Sym
			sym.fnType = NoSymbolID
			got := s.syms.New(&sym)
			if got != id {
				return nil, symerr.New(symerr.KindUnexpected, "restore misallocated symbol %d as %d", id, got)
			}
			s.index(id, s.syms.Get(id))
			if s.syms.Get(id).Kind == SymbolFunctionType {
				s.fnTypes[sym.Name] = id
			}
			next++
			continue
		}
		got := s.syms.New(&Symbol{Kind: SymbolInvalid})
		s.syms.Kill(got)
	}
	if next != len(records) {
		return nil, symerr.New(symerr.KindUnexpected, "restore left %d records unplaced", len(records)-next)
	}
	for _, e := range deps {
		if e.Count <= 0 {
			continue
		}
		m := s.deps[e.Dependency]
		if m == nil {
			m = make(map[SymbolID]int)
			s.deps[e.Dependency] = m
		}
		m[e.Dependent] = e.Count
	}
	return s, nil
}
