package callconv

import (
	"fmt"

	"symforge/internal/arch"
)

// LocationKind distinguishes register-resident values from
// register-relative (memory) ones.
type LocationKind uint8

const (
	LocNone LocationKind = iota
	// LocRegister means the value lives directly in Reg.
	LocRegister
	// LocRegisterRelative means the value lives in memory at [Reg+Offset].
	// Stack parameters and by-reference aggregates both use this kind.
	LocRegisterRelative
)

// Location is one ABI location a parameter or local occupies.
type Location struct {
	Kind   LocationKind
	Reg    arch.RegID
	Offset int64 // only meaningful for LocRegisterRelative
	Size   int
}

// Format renders the location using the directory's register names,
// e.g. "ecx" or "[rsp+0x28]".
func (l Location) Format(dir arch.Directory) string {
	name := fmt.Sprintf("reg#%d", l.Reg)
	if reg, ok := dir.RegisterByID(l.Reg); ok {
		name = reg.Name
	}
	switch l.Kind {
	case LocRegister:
		return name
	case LocRegisterRelative:
		if l.Offset == 0 {
			return "[" + name + "]"
		}
		if l.Offset < 0 {
			return fmt.Sprintf("[%s-%#x]", name, -l.Offset)
		}
		return fmt.Sprintf("[%s+%#x]", name, l.Offset)
	default:
		return "<none>"
	}
}

// Equivalent reports whether two locations are the same for live-range
// merging: same kind and offset, registers compared by canonical base so
// that ecx and rcx describe one storage location.
func (l Location) Equivalent(dir arch.Directory, other Location) bool {
	if l.Kind != other.Kind {
		return false
	}
	if l.Kind == LocRegisterRelative && l.Offset != other.Offset {
		return false
	}
	return arch.Canonical(dir, l.Reg) == arch.Canonical(dir, other.Reg)
}

// InRegister reports whether the value itself is register-resident.
func (l Location) InRegister() bool { return l.Kind == LocRegister }
