package symbols

import (
	"fmt"

	"fortio.org/safecast"
)

// Symbols stores all allocated symbols in a compact slice-based arena.
// Slots are never reused: a deleted symbol's slot stays dead so stale ids
// resolve to nil instead of a later occupant.
type Symbols struct {
	data []Symbol
	dead []bool
}

// NewSymbols creates a symbol arena with optional capacity hint.
func NewSymbols(capacity uint32) *Symbols {
	if capacity == 0 {
		capacity = 64
	}
	return &Symbols{
		data: make([]Symbol, 1, capacity+1), // index 0 reserved for NoSymbolID
		dead: make([]bool, 1, capacity+1),
	}
}

// New allocates a symbol in the arena and returns its ID.
func (s *Symbols) New(sym *Symbol) SymbolID {
	if sym == nil {
		panic("symbols.New: nil symbol")
	}
	value, err := safecast.Conv[uint32](len(s.data))
	if err != nil {
		panic(fmt.Errorf("symbols arena overflow: %w", err))
	}
	id := SymbolID(value)
	s.data = append(s.data, *sym)
	s.dead = append(s.dead, false)
	return id
}

// Get returns a symbol pointer, or nil for an invalid or deleted ID.
func (s *Symbols) Get(id SymbolID) *Symbol {
	if !id.IsValid() || int(id) >= len(s.data) || s.dead[id] {
		return nil
	}
	return &s.data[id]
}

// Kill marks the slot dead. The id keeps resolving to nil forever.
func (s *Symbols) Kill(id SymbolID) {
	if !id.IsValid() || int(id) >= len(s.data) {
		return
	}
	s.dead[id] = true
	s.data[id] = Symbol{}
}

// Len reports the number of allocated slots, dead ones included.
func (s *Symbols) Len() int { return len(s.data) - 1 }

// Alive calls fn for every live symbol in id order and stops early when fn
// returns false. The sequence is finite by construction: it is bounded by
// the symbol count at the time of the call.
func (s *Symbols) Alive(fn func(SymbolID, *Symbol) bool) {
	n := len(s.data)
	for i := 1; i < n; i++ {
		if s.dead[i] {
			continue
		}
		if !fn(SymbolID(i), &s.data[i]) { //nolint:gosec // bounded by arena length
			return
		}
	}
}
