// Package callconv maps parameter lists to ABI locations. A convention is
// configured from architecture register names, resolved once at
// construction against the host register directory; all ABI knowledge
// stays here so that the range builder remains architecture-agnostic.
package callconv

import (
	"symforge/internal/arch"
	"symforge/internal/symerr"
)

// Param is the convention's view of one parameter after typedef
// unwinding: only the true kind and byte size matter for placement.
type Param struct {
	Name      string
	Size      int
	Floating  bool // floating intrinsic, prefers the floating sequence
	Aggregate bool // UDT/array, may be passed by reference
}

// Convention places parameters and classifies register volatility across
// calls.
type Convention interface {
	PlaceParameters(params []Param) ([]Location, error)
	IsNonVolatile(reg arch.RegID) bool
}

// Spec configures a concrete convention by register name. Names may name
// sub-registers; they are canonicalized to their whole-register owners.
type Spec struct {
	Ordinal     []string // integer/pointer parameter sequence, in order
	Floating    []string // floating parameter sequence, in order
	NonVolatile []string // preserved across calls
	Stack       string   // register spilled parameters are relative to
}

// Rules is a Spec resolved against a register directory.
type Rules struct {
	dir         arch.Directory
	ordinal     []arch.RegID
	floating    []arch.RegID
	nonVolatile map[arch.RegID]struct{}
	stack       arch.RegID
}

// New resolves spec's register names to canonical ids. A name the
// directory does not know is an Unsupported error: the convention cannot
// serve this architecture.
func New(dir arch.Directory, spec Spec) (*Rules, error) {
	resolve := func(name string) (arch.RegID, error) {
		reg, ok := dir.RegisterByName(name)
		if !ok {
			return arch.NoRegID, symerr.New(symerr.KindUnsupported, "unknown register %q", name)
		}
		return arch.Canonical(dir, reg.ID), nil
	}
	r := &Rules{
		dir:         dir,
		nonVolatile: make(map[arch.RegID]struct{}, len(spec.NonVolatile)),
	}
	for _, name := range spec.Ordinal {
		id, err := resolve(name)
		if err != nil {
			return nil, err
		}
		r.ordinal = append(r.ordinal, id)
	}
	for _, name := range spec.Floating {
		id, err := resolve(name)
		if err != nil {
			return nil, err
		}
		r.floating = append(r.floating, id)
	}
	for _, name := range spec.NonVolatile {
		id, err := resolve(name)
		if err != nil {
			return nil, err
		}
		r.nonVolatile[id] = struct{}{}
	}
	stack, err := resolve(spec.Stack)
	if err != nil {
		return nil, err
	}
	r.stack = stack
	return r, nil
}

// PlaceParameters walks parameters left to right. Both register sequences
// are indexed by parameter position, so a floating parameter consumes its
// slot in the ordinal sequence as well. Once a position runs past the
// sequences the parameter spills to the stack at 8-byte increments
// starting one pointer above the return address slot.
func (r *Rules) PlaceParameters(params []Param) ([]Location, error) {
	ptrSize := r.dir.PointerSize()
	out := make([]Location, len(params))
	for i, p := range params {
		size := p.Size
		if size <= 0 {
			size = ptrSize
		}
		byRef := p.Aggregate && !fitsRegister(size, ptrSize)
		if byRef {
			// Oversized aggregates travel by reference: the location is
			// register-relative, sized to the register's pointer width.
			size = ptrSize
		}
		seq := r.ordinal
		if p.Floating && !byRef {
			seq = r.floating
		}
		if i < len(seq) {
			whole := seq[i]
			if byRef {
				out[i] = Location{Kind: LocRegisterRelative, Reg: whole, Offset: 0, Size: size}
				continue
			}
			out[i] = Location{
				Kind: LocRegister,
				Reg:  arch.SubRegister(r.dir, whole, size),
				Size: size,
			}
			continue
		}
		out[i] = Location{
			Kind:   LocRegisterRelative,
			Reg:    r.stack,
			Offset: int64(ptrSize) + int64(i)*8,
			Size:   spillSize(size),
		}
	}
	return out, nil
}

// IsNonVolatile reports whether the register survives a call.
func (r *Rules) IsNonVolatile(reg arch.RegID) bool {
	_, ok := r.nonVolatile[arch.Canonical(r.dir, reg)]
	return ok
}

func fitsRegister(size, ptrSize int) bool {
	if size > ptrSize {
		return false
	}
	return size&(size-1) == 0
}

func spillSize(size int) int {
	if size > 8 {
		return size
	}
	return 8
}
