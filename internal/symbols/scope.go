package symbols

import (
	"symforge/internal/arch"
	"symforge/internal/callconv"
	"symforge/internal/symerr"
)

// BoundVariable is one variable live at a particular code offset, bound to
// the concrete location it occupies there. Each scope query returns fresh
// values, so two enumerations of the same function never alias storage for
// their location strings.
type BoundVariable struct {
	ID       SymbolID
	Name     string
	Kind     SymbolKind
	Type     SymbolID
	Location callconv.Location
	Where    string
}

// RegContext supplies the live register values of one stopped scope
// instance, keyed by directory register id.
type RegContext interface {
	RegValue(id arch.RegID) (uint64, bool)
}

// RegValues is a RegContext over a plain register-value map.
type RegValues map[arch.RegID]uint64

// RegValue returns the recorded value for id.
func (v RegValues) RegValue(id arch.RegID) (uint64, bool) {
	val, ok := v[id]
	return val, ok
}

// ScopeAtContext binds the scope at the instruction pointer of a live
// register context: the pointer is read out of the context, rebased from
// its loaded address to a function-relative offset, and resolved as in
// ScopeAt.
func (s *Store) ScopeAtContext(dir arch.Directory, fn SymbolID, ctx RegContext) (vars []BoundVariable, err error) {
	defer symerr.Guard(&err)
	addr, ok := ctx.RegValue(dir.ProgramCounter())
	if !ok {
		return nil, symerr.New(symerr.KindInvalidArgument, "register context carries no program counter")
	}
	offset, err := s.functionOffsetOf(fn, addr-dir.Base())
	if err != nil {
		return nil, err
	}
	return s.ScopeAt(dir, fn, offset)
}

// functionOffsetOf translates a module-relative address into the
// function's own address space, accumulating across its disjoint code
// ranges.
func (s *Store) functionOffsetOf(fn SymbolID, addr uint64) (uint64, error) {
	sym, err := s.Kind(fn, SymbolFunction)
	if err != nil {
		return 0, err
	}
	var acc uint64
	for _, r := range sym.Ranges {
		if addr >= r.Offset && addr < r.End() {
			return acc + (addr - r.Offset), nil
		}
		acc += r.Size
	}
	return 0, symerr.New(symerr.KindInvalidArgument,
		"address %#x is outside the function's code ranges", addr)
}

// ScopeAt enumerates the parameters and locals whose live ranges cover the
// function-relative code offset. The offset must fall inside the
// function's code ranges.
func (s *Store) ScopeAt(dir arch.Directory, fn SymbolID, offset uint64) (vars []BoundVariable, err error) {
	defer symerr.Guard(&err)
	total, err := s.FunctionSize(fn)
	if err != nil {
		return nil, err
	}
	if offset >= total {
		return nil, symerr.New(symerr.KindInvalidArgument,
			"offset %#x is outside the function's %#x code bytes", offset, total)
	}
	children, err := s.ChildrenOf(fn, SymbolParameter, SymbolLocal)
	if err != nil {
		return nil, err
	}
	for _, id := range children {
		sym := s.MustGet(id)
		for _, lr := range sym.LiveRanges {
			if lr.Offset <= offset && offset < lr.End() {
				vars = append(vars, BoundVariable{
					ID:       id,
					Name:     sym.Name,
					Kind:     sym.Kind,
					Type:     sym.Type,
					Location: lr.Loc,
					Where:    lr.Loc.Format(dir),
				})
				break
			}
		}
	}
	return vars, nil
}
