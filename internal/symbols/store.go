package symbols

import (
	"errors"

	"github.com/rs/zerolog"

	"symforge/internal/interval"
	"symforge/internal/symerr"
)

// Importer pulls symbols in from a secondary legacy source on demand. It
// reports whether it added anything; its errors never fail the lookup that
// triggered it.
type Importer interface {
	ImportByName(st *Store, name string) (bool, error)
}

// OffsetImporter is the optional offset-query half of the importer
// contract; sources that index their symbols by address implement it
// alongside Importer, and FindByOffset consults it on a miss.
type OffsetImporter interface {
	ImportByOffset(st *Store, addr uint64) (bool, error)
}

// Options toggle demand-creation of derived types during type-name
// resolution.
type Options struct {
	CreatePointers bool
	CreateArrays   bool
}

// DefaultOptions enables demand-creation of both pointer and array types.
func DefaultOptions() Options {
	return Options{CreatePointers: true, CreateArrays: true}
}

// Hints provide optional capacity suggestions for the store arena.
type Hints struct{ Symbols uint32 }

// Store is the master symbol table for one module: id allocation, name and
// address indices, parent/child links, the reference-counted dependency
// graph, and cache-invalidation broadcast. All other components operate
// only through it. Single-threaded by design; callers serialize access per
// symbol set.
type Store struct {
	syms    *Symbols
	names   map[string][]SymbolID
	globals map[string]SymbolID
	addrs   interval.Map[SymbolID]
	points  interval.PointMap[SymbolID]

	// deps[b][a] counts how many times a depends on b, so that a type
	// containing the same dependency twice decrements safely.
	deps map[SymbolID]map[SymbolID]int

	fnTypes   map[string]SymbolID
	listeners []func()
	importers []Importer
	recompute func(*Store, SymbolID)
	opts      Options
	log       zerolog.Logger
}

// NewStore builds an empty symbol set.
func NewStore(h Hints, opts Options, log zerolog.Logger) *Store {
	return &Store{
		syms:    NewSymbols(h.Symbols),
		names:   make(map[string][]SymbolID, 64),
		globals: make(map[string]SymbolID, 64),
		deps:    make(map[SymbolID]map[SymbolID]int),
		fnTypes: make(map[string]SymbolID),
		opts:    opts,
		log:     log,
	}
}

// Options returns the demand-creation toggles.
func (s *Store) Options() Options { return s.opts }

// SetRecomputeHook installs the layout engine callback invoked when a
// symbol's derived state must be recalculated. The hook is how dependency
// notifications turn into fresh sizes and offsets.
func (s *Store) SetRecomputeHook(fn func(*Store, SymbolID)) { s.recompute = fn }

// RegisterImporter appends an on-demand importer consulted on name misses.
func (s *Store) RegisterImporter(im Importer) {
	if im != nil {
		s.importers = append(s.importers, im)
	}
}

// AddInvalidationListener registers an external cache listener. Delivery
// is best effort; a failing listener never fails the mutation.
func (s *Store) AddInvalidationListener(fn func()) {
	if fn != nil {
		s.listeners = append(s.listeners, fn)
	}
}

// Add allocates the next id for sym, stores it, indexes it, and fires
// cache invalidation.
func (s *Store) Add(sym *Symbol) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	if sym == nil || sym.Kind == SymbolInvalid {
		return NoSymbolID, symerr.New(symerr.KindInvalidArgument, "cannot add a symbol without a kind")
	}
	if sym.Qualified == "" {
		sym.Qualified = s.qualify(sym.Parent, sym.Name)
	}
	id = s.syms.New(sym)
	if sym.Parent.IsValid() {
		if parent := s.syms.Get(sym.Parent); parent != nil {
			parent.Children = append(parent.Children, id)
		}
	}
	stored := s.syms.Get(id)
	s.index(id, stored)
	s.invalidate()
	return id, nil
}

// Delete unindexes id everywhere and kills its arena slot. Dependents are
// not touched: any symbol still referring to id holds a zombie reference
// that fails with NotFound on next use. There is no cascading delete.
func (s *Store) Delete(id SymbolID) (err error) {
	defer symerr.Guard(&err)
	sym := s.syms.Get(id)
	if sym == nil {
		return symerr.New(symerr.KindNotFound, "symbol %d no longer resolves", id)
	}
	s.unindex(id, sym)
	if sym.Parent.IsValid() {
		if parent := s.syms.Get(sym.Parent); parent != nil {
			parent.Children = dropChild(parent.Children, id)
		}
	}
	// Nobody will be notified about id anymore; references *to* id from
	// other dependency sets are skipped lazily during notification.
	delete(s.deps, id)
	s.syms.Kill(id)
	s.invalidate()
	return nil
}

// Get resolves an id, failing cleanly on zombies.
func (s *Store) Get(id SymbolID) (*Symbol, error) {
	sym := s.syms.Get(id)
	if sym == nil {
		return nil, symerr.New(symerr.KindNotFound, "symbol %d no longer resolves", id)
	}
	return sym, nil
}

// MustGet is the internal variant used where the graph itself guarantees
// the id; a miss there is an invariant violation and panics into the
// boundary Guard.
func (s *Store) MustGet(id SymbolID) *Symbol {
	sym := s.syms.Get(id)
	if sym == nil {
		panic(symerr.New(symerr.KindUnexpected, "symbol graph points at missing symbol %d", id))
	}
	return sym
}

// Kind resolves an id and checks its kind tag in one step.
func (s *Store) Kind(id SymbolID, kind SymbolKind) (*Symbol, error) {
	sym, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if sym.Kind != kind {
		return nil, symerr.New(symerr.KindUnexpected, "symbol %d is a %s, expected %s", id, sym.Kind, kind)
	}
	return sym, nil
}

// FindByName resolves a global by qualified name, then by bare name. On a
// miss the importer chain gets one chance to populate the store; importer
// failures are logged and never fail the lookup.
func (s *Store) FindByName(name string) (SymbolID, error) {
	if id, ok := s.lookupName(name); ok {
		return id, nil
	}
	for _, im := range s.importers {
		added, err := im.ImportByName(s, name)
		if err != nil {
			s.log.Warn().Err(err).Str("name", name).Msg("on-demand import failed")
			continue
		}
		if added {
			if id, ok := s.lookupName(name); ok {
				return id, nil
			}
		}
	}
	return NoSymbolID, symerr.New(symerr.KindNotFound, "no symbol named %q", name)
}

func (s *Store) lookupName(name string) (SymbolID, bool) {
	if id, ok := s.globals[name]; ok && s.syms.Get(id) != nil {
		return id, true
	}
	for _, id := range s.names[name] {
		if s.syms.Get(id) != nil {
			return id, true
		}
	}
	return NoSymbolID, false
}

// FindByOffset maps a module-relative offset to the symbol owning it plus
// the residual offset from the symbol's base. With exactOnly set, a
// nonzero residual reports NotFound even though an interval match existed.
// Sizeless publics are found through nearest-symbol-before. On a miss,
// importers that index by address get one chance to populate the store.
func (s *Store) FindByOffset(addr uint64, exactOnly bool) (SymbolID, uint64, error) {
	id, residual, err := s.lookupOffset(addr, exactOnly)
	if err == nil || !errors.Is(err, symerr.NotFound) {
		return id, residual, err
	}
	for _, im := range s.importers {
		oi, ok := im.(OffsetImporter)
		if !ok {
			continue
		}
		added, ierr := oi.ImportByOffset(s, addr)
		if ierr != nil {
			s.log.Warn().Err(ierr).Uint64("addr", addr).Msg("on-demand import failed")
			continue
		}
		if added {
			if id, residual, rerr := s.lookupOffset(addr, exactOnly); rerr == nil {
				return id, residual, nil
			}
		}
	}
	return NoSymbolID, 0, err
}

func (s *Store) lookupOffset(addr uint64, exactOnly bool) (SymbolID, uint64, error) {
	if ids := s.addrs.Query(addr); len(ids) > 0 {
		id := ids[0]
		sym := s.syms.Get(id)
		if sym == nil {
			return NoSymbolID, 0, symerr.New(symerr.KindUnexpected, "address index holds dead symbol %d", id)
		}
		residual := addr - s.baseOffset(sym)
		if exactOnly && residual != 0 {
			return NoSymbolID, 0, symerr.New(symerr.KindNotFound, "no symbol bound exactly at %#x", addr)
		}
		return id, residual, nil
	}
	if base, ids, ok := s.points.NearestBefore(addr); ok {
		residual := addr - base
		if exactOnly && residual != 0 {
			return NoSymbolID, 0, symerr.New(symerr.KindNotFound, "no symbol bound exactly at %#x", addr)
		}
		for _, id := range ids {
			if s.syms.Get(id) != nil {
				return id, residual, nil
			}
		}
	}
	return NoSymbolID, 0, symerr.New(symerr.KindNotFound, "no symbol bound at %#x", addr)
}

func (s *Store) baseOffset(sym *Symbol) uint64 {
	if sym.Kind == SymbolFunction && len(sym.Ranges) > 0 {
		return sym.Ranges[0].Offset
	}
	return sym.Addr
}

// All returns the ids of every live symbol in allocation order.
func (s *Store) All() []SymbolID {
	out := make([]SymbolID, 0, s.syms.Len())
	s.syms.Alive(func(id SymbolID, _ *Symbol) bool {
		out = append(out, id)
		return true
	})
	return out
}

// Each calls fn for every live symbol in allocation order; fn returning
// false stops the walk. The walk is restartable and finite.
func (s *Store) Each(fn func(SymbolID, *Symbol) bool) { s.syms.Alive(fn) }

// ChildrenOf returns the children of id with one of the given kinds, in
// declaration order; with no kinds, all children.
func (s *Store) ChildrenOf(id SymbolID, kinds ...SymbolKind) ([]SymbolID, error) {
	sym, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return append([]SymbolID(nil), sym.Children...), nil
	}
	var out []SymbolID
	for _, child := range sym.Children {
		cs := s.syms.Get(child)
		if cs == nil {
			continue
		}
		for _, k := range kinds {
			if cs.Kind == k {
				out = append(out, child)
				break
			}
		}
	}
	return out, nil
}

// MoveChild reorders parent's child list so the child at index from lands
// at index to. Declaration order is insertion order unless reordered here.
func (s *Store) MoveChild(parent SymbolID, from, to int) (err error) {
	defer symerr.Guard(&err)
	sym, err := s.Get(parent)
	if err != nil {
		return err
	}
	n := len(sym.Children)
	if from < 0 || from >= n || to < 0 || to >= n {
		return symerr.New(symerr.KindInvalidArgument, "child index out of range (%d -> %d of %d)", from, to, n)
	}
	child := sym.Children[from]
	rest := append(sym.Children[:from:from], sym.Children[from+1:]...)
	sym.Children = append(rest[:to:to], append([]SymbolID{child}, rest[to:]...)...)
	s.NotifyDependentChange(parent)
	s.invalidate()
	return nil
}

func (s *Store) qualify(parent SymbolID, name string) string {
	if !parent.IsValid() {
		return name
	}
	p := s.syms.Get(parent)
	if p == nil || p.Qualified == "" {
		return name
	}
	return p.Qualified + "::" + name
}

func (s *Store) index(id SymbolID, sym *Symbol) {
	if sym.Name != "" {
		s.names[sym.Name] = append(s.names[sym.Name], id)
	}
	if sym.Kind.IsGlobal() && sym.Qualified != "" {
		if _, taken := s.globals[sym.Qualified]; !taken {
			s.globals[sym.Qualified] = id
		}
	}
	switch sym.Kind {
	case SymbolFunction:
		for _, r := range sym.Ranges {
			s.addrs.Insert(r.Offset, r.End(), id)
		}
	case SymbolGlobalData:
		if size := s.dataSize(sym); size > 0 {
			s.addrs.Insert(sym.Addr, sym.Addr+uint64(size), id)
		} else {
			s.points.Add(sym.Addr, id)
		}
	case SymbolPublic:
		s.points.Add(sym.Addr, id)
	}
}

func (s *Store) unindex(id SymbolID, sym *Symbol) {
	if sym.Name != "" {
		s.names[sym.Name] = dropChild(s.names[sym.Name], id)
		if len(s.names[sym.Name]) == 0 {
			delete(s.names, sym.Name)
		}
	}
	if s.globals[sym.Qualified] == id {
		delete(s.globals, sym.Qualified)
	}
	switch sym.Kind {
	case SymbolFunction:
		for _, r := range sym.Ranges {
			s.addrs.Remove(r.Offset, r.End(), id)
		}
	case SymbolGlobalData:
		if size := s.dataSize(sym); size > 0 {
			s.addrs.Remove(sym.Addr, sym.Addr+uint64(size), id)
		} else {
			s.points.Remove(sym.Addr, id)
		}
	case SymbolPublic:
		s.points.Remove(sym.Addr, id)
	}
}

func (s *Store) dataSize(sym *Symbol) int {
	if !sym.Type.IsValid() {
		return 0
	}
	t := s.syms.Get(sym.Type)
	if t == nil {
		return 0
	}
	return t.Size
}

// invalidate broadcasts "symbols changed" to every listener. A panicking
// listener is recovered and logged; the mutation that triggered the
// broadcast has already happened and stays committed.
func (s *Store) invalidate() {
	for i, fn := range s.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Warn().Int("listener", i).Interface("panic", r).
						Msg("cache invalidation listener failed")
				}
			}()
			fn()
		}()
	}
}

func dropChild(children []SymbolID, id SymbolID) []SymbolID {
	for i, c := range children {
		if c == id {
			return append(children[:i], children[i+1:]...)
		}
	}
	return children
}
