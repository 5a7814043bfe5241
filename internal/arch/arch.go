// Package arch models the host directory the symbol core consults for
// module base addresses and canonical register metadata.
package arch

// RegID is the canonical, architecture-independent register identity used
// to correlate disassembler-local register numbering with calling
// convention rules.
type RegID uint16

// NoRegID marks the absence of a register reference.
const NoRegID RegID = 0

// IsValid reports whether the id refers to a known register.
func (id RegID) IsValid() bool { return id != NoRegID }

// Register describes one architecture register. Sub-registers carry their
// byte offset within the parent; the whole register has Parent == NoRegID.
type Register struct {
	ID     RegID
	Name   string
	Size   int
	Offset int // byte offset within the parent register
	Parent RegID
	Sub    []RegID
}

// Directory is the narrow contract the core consumes from the host's
// module/process/service directory.
type Directory interface {
	// Base returns the module load address.
	Base() uint64
	// PointerSize returns the target pointer width in bytes.
	PointerSize() int
	// ProgramCounter returns the instruction pointer register.
	ProgramCounter() RegID
	RegisterByName(name string) (Register, bool)
	RegisterByID(id RegID) (Register, bool)
}

// Canonical walks sub-register parent links to the whole-register owner.
func Canonical(dir Directory, id RegID) RegID {
	for id.IsValid() {
		reg, ok := dir.RegisterByID(id)
		if !ok || !reg.Parent.IsValid() {
			return id
		}
		id = reg.Parent
	}
	return NoRegID
}

// SubRegister picks the largest sub-register of whole that fits size bytes
// at byte offset zero, or whole itself when it fits. Ties between
// same-sized subs go to whichever is enumerated first; that order is
// implementation-defined, not a contract.
func SubRegister(dir Directory, whole RegID, size int) RegID {
	reg, ok := dir.RegisterByID(whole)
	if !ok {
		return NoRegID
	}
	if reg.Size <= size {
		return whole
	}
	best := NoRegID
	bestSize := 0
	var walk func(Register)
	walk = func(r Register) {
		for _, subID := range r.Sub {
			sub, ok := dir.RegisterByID(subID)
			if !ok {
				continue
			}
			if sub.Offset == 0 && sub.Size <= size && sub.Size > bestSize {
				best = sub.ID
				bestSize = sub.Size
			}
			walk(sub)
		}
	}
	walk(reg)
	if !best.IsValid() {
		return whole
	}
	return best
}
