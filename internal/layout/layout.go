// Package layout keeps the sizes, alignments, and member offsets of the
// type graph consistent after mutation. It runs synchronously inside the
// store's dependency-notification cascade.
package layout

import (
	"symforge/internal/symbols"
	"symforge/internal/symerr"
)

// TypeLayout is the computed layout of one type.
type TypeLayout struct {
	Size  int
	Align int
}

// Engine computes memory layout for type symbols.
type Engine struct {
	Target Target
}

// New creates an Engine for the specified target.
func New(target Target) *Engine {
	return &Engine{Target: target}
}

// Attach installs the engine as the store's recompute hook, so dependency
// notifications re-run layout without the mutating caller doing anything.
func (e *Engine) Attach(st *symbols.Store) {
	st.SetRecomputeHook(e.recompute)
}

// Layout recomputes and returns the layout of a type symbol.
func (e *Engine) Layout(st *symbols.Store, id symbols.SymbolID) (tl TypeLayout, err error) {
	defer symerr.Guard(&err)
	sym, err := st.Get(id)
	if err != nil {
		return TypeLayout{}, err
	}
	if !sym.Kind.IsType() {
		return TypeLayout{}, symerr.New(symerr.KindInvalidArgument,
			"symbol %d is a %s, not a type", id, sym.Kind)
	}
	e.recompute(st, id)
	sym = st.MustGet(id)
	return TypeLayout{Size: sym.Size, Align: sym.Align}, nil
}

// recompute refreshes one symbol's derived state. It is reached through
// Store.NotifyDependentChange, so all failure paths panic taxonomy errors
// for the boundary Guard of the mutating operation.
func (e *Engine) recompute(st *symbols.Store, id symbols.SymbolID) {
	sym := st.MustGet(id)
	switch sym.Kind {
	case symbols.SymbolUDT:
		e.layoutUDT(st, sym)
	case symbols.SymbolEnum:
		e.layoutEnum(st, sym)
	case symbols.SymbolPointer:
		sym.Size = e.Target.PtrSize
		sym.Align = e.Target.PtrAlign
		sym.LaidOut = true
	case symbols.SymbolArray:
		e.layoutArray(st, sym)
	case symbols.SymbolTypedef:
		target := e.typeOf(st, sym.Target)
		sym.Size = target.Size
		sym.Align = target.Align
		sym.LaidOut = true
	default:
		// Basic types carry their declared size; members get their
		// offsets when the enclosing UDT lays out; everything else has
		// no derived layout state of its own.
	}
}

// typeOf resolves a referenced type id, failing the enclosing mutation
// cleanly when the reference has gone zombie.
func (e *Engine) typeOf(st *symbols.Store, id symbols.SymbolID) *symbols.Symbol {
	sym, err := st.Get(id)
	if err != nil {
		panic(symerr.New(symerr.KindNotFound, "referenced type %d no longer resolves", id))
	}
	if !sym.Kind.IsType() {
		panic(symerr.New(symerr.KindUnexpected, "symbol %d is a %s, not a type", id, sym.Kind))
	}
	return sym
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
