package symbols

import (
	"fmt"
	"strings"

	"symforge/internal/callconv"
	"symforge/internal/symerr"
)

// NewFunction registers a function with one or more disjoint code ranges;
// the first range is the primary/entry range.
func (s *Store) NewFunction(name string, ret SymbolID, ranges []Range) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	if len(ranges) == 0 {
		return NoSymbolID, symerr.New(symerr.KindInvalidArgument, "function %q needs at least one code range", name)
	}
	if err = checkDisjoint(ranges); err != nil {
		return NoSymbolID, err
	}
	if ret.IsValid() {
		if _, err = s.Get(ret); err != nil {
			return NoSymbolID, err
		}
	}
	return s.Add(&Symbol{
		Name:       name,
		Kind:       SymbolFunction,
		Ranges:     append([]Range(nil), ranges...),
		ReturnType: ret,
	})
}

// AddFunctionRange appends a secondary code range to a function.
func (s *Store) AddFunctionRange(fn SymbolID, r Range) (err error) {
	defer symerr.Guard(&err)
	sym, err := s.Kind(fn, SymbolFunction)
	if err != nil {
		return err
	}
	next := append(append([]Range(nil), sym.Ranges...), r)
	if err = checkDisjoint(next); err != nil {
		return err
	}
	sym.Ranges = next
	s.addrs.Insert(r.Offset, r.End(), fn)
	s.invalidate()
	return nil
}

// SetReturnType swaps the function's return type and invalidates the
// memoized function type.
func (s *Store) SetReturnType(fn, ret SymbolID) (err error) {
	defer symerr.Guard(&err)
	sym, err := s.Kind(fn, SymbolFunction)
	if err != nil {
		return err
	}
	if ret.IsValid() {
		if _, err = s.Get(ret); err != nil {
			return err
		}
	}
	sym.ReturnType = ret
	sym.fnType = NoSymbolID
	s.invalidate()
	return nil
}

// AddParameter appends a parameter to a function. Parameter order is
// declaration order; the memoized function type is invalidated.
func (s *Store) AddParameter(fn SymbolID, name string, typ SymbolID) (SymbolID, error) {
	return s.addVariable(fn, name, typ, SymbolParameter)
}

// AddLocal appends a local variable to a function.
func (s *Store) AddLocal(fn SymbolID, name string, typ SymbolID) (SymbolID, error) {
	return s.addVariable(fn, name, typ, SymbolLocal)
}

func (s *Store) addVariable(fn SymbolID, name string, typ SymbolID, kind SymbolKind) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	if _, err = s.Kind(fn, SymbolFunction); err != nil {
		return NoSymbolID, err
	}
	if _, err = s.Get(typ); err != nil {
		return NoSymbolID, err
	}
	id, err = s.Add(&Symbol{
		Name:   name,
		Kind:   kind,
		Parent: fn,
		Type:   typ,
	})
	if err != nil {
		return NoSymbolID, err
	}
	if kind == SymbolParameter {
		// Re-fetch: Add may have grown the arena.
		s.MustGet(fn).fnType = NoSymbolID
	}
	return id, nil
}

// FunctionType synthesizes and memoizes a structural function type keyed
// by return type and ordered parameter types. Two functions with the same
// shape share one function-type symbol; any change to the parameter list
// or return type rebuilds it.
func (s *Store) FunctionType(fn SymbolID) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	sym, err := s.Kind(fn, SymbolFunction)
	if err != nil {
		return NoSymbolID, err
	}
	if sym.fnType.IsValid() && s.syms.Get(sym.fnType) != nil {
		return sym.fnType, nil
	}
	params, err := s.ChildrenOf(fn, SymbolParameter)
	if err != nil {
		return NoSymbolID, err
	}
	paramTypes := make([]SymbolID, 0, len(params))
	for _, p := range params {
		paramTypes = append(paramTypes, s.MustGet(p).Type)
	}
	key := functionTypeKey(sym.ReturnType, paramTypes)
	if existing, ok := s.fnTypes[key]; ok && s.syms.Get(existing) != nil {
		sym.fnType = existing
		return existing, nil
	}
	id, err = s.Add(&Symbol{
		Name:       key,
		Kind:       SymbolFunctionType,
		ReturnType: sym.ReturnType,
		ParamTypes: paramTypes,
	})
	if err != nil {
		return NoSymbolID, err
	}
	s.fnTypes[key] = id
	// The function symbol may have moved while Add grew the arena.
	s.MustGet(fn).fnType = id
	return id, nil
}

// ABIParams unwinds typedefs on every parameter and returns the
// convention-level view plus the parameter ids in declaration order.
func (s *Store) ABIParams(fn SymbolID) ([]callconv.Param, []SymbolID, error) {
	params, err := s.ChildrenOf(fn, SymbolParameter)
	if err != nil {
		return nil, nil, err
	}
	out := make([]callconv.Param, 0, len(params))
	for _, p := range params {
		ps := s.MustGet(p)
		t, err := s.unwindTypedefs(ps.Type)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, callconv.Param{
			Name:      ps.Name,
			Size:      t.Size,
			Floating:  t.Kind == SymbolBasic && t.Basic.IsFloating(),
			Aggregate: t.Kind == SymbolUDT || t.Kind == SymbolArray,
		})
	}
	return out, params, nil
}

func (s *Store) unwindTypedefs(id SymbolID) (*Symbol, error) {
	for {
		sym, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if sym.Kind != SymbolTypedef {
			return sym, nil
		}
		id = sym.Target
	}
}

// FunctionSize returns the total byte size across all code ranges.
func (s *Store) FunctionSize(fn SymbolID) (uint64, error) {
	sym, err := s.Kind(fn, SymbolFunction)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, r := range sym.Ranges {
		total += r.Size
	}
	return total, nil
}

func functionTypeKey(ret SymbolID, params []SymbolID) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%d", p))
	}
	return fmt.Sprintf("fn(%s)->%d", strings.Join(parts, ","), ret)
}

func checkDisjoint(ranges []Range) error {
	for i := range ranges {
		for j := i + 1; j < len(ranges); j++ {
			a, b := ranges[i], ranges[j]
			if a.Offset < b.End() && b.Offset < a.End() {
				return symerr.New(symerr.KindInvalidArgument,
					"function ranges [%#x,%#x) and [%#x,%#x) overlap",
					a.Offset, a.End(), b.Offset, b.End())
			}
		}
	}
	return nil
}
