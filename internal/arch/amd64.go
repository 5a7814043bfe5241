package arch

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// AMD64Directory is an in-process Directory for the x86-64 register file.
// Register ids are dense and stable for the lifetime of the directory.
type AMD64Directory struct {
	base   uint64
	regs   []Register // index 0 reserved for NoRegID
	byName map[string]RegID
	pc     RegID
}

// gp16 lists the 64-bit general purpose registers with their 32/16/8-bit
// sub-register names. The low byte name comes first so LSB-0 selection
// enumerates it before the high byte.
var gp64 = []struct {
	name  string
	sub32 string
	sub16 string
	sub8  string
	high8 string // legacy high byte, offset 1; empty when absent
}{
	{"rax", "eax", "ax", "al", "ah"},
	{"rcx", "ecx", "cx", "cl", "ch"},
	{"rdx", "edx", "dx", "dl", "dh"},
	{"rbx", "ebx", "bx", "bl", "bh"},
	{"rsp", "esp", "sp", "spl", ""},
	{"rbp", "ebp", "bp", "bpl", ""},
	{"rsi", "esi", "si", "sil", ""},
	{"rdi", "edi", "di", "dil", ""},
	{"r8", "r8d", "r8w", "r8b", ""},
	{"r9", "r9d", "r9w", "r9b", ""},
	{"r10", "r10d", "r10w", "r10b", ""},
	{"r11", "r11d", "r11w", "r11b", ""},
	{"r12", "r12d", "r12w", "r12b", ""},
	{"r13", "r13d", "r13w", "r13b", ""},
	{"r14", "r14d", "r14w", "r14b", ""},
	{"r15", "r15d", "r15w", "r15b", ""},
}

// AMD64 builds the x86-64 register directory for a module loaded at base.
func AMD64(base uint64) *AMD64Directory {
	d := &AMD64Directory{
		base:   base,
		regs:   make([]Register, 1, 128),
		byName: make(map[string]RegID, 128),
	}
	for _, gp := range gp64 {
		whole := d.add(gp.name, 8, 0, NoRegID)
		d.add(gp.sub32, 4, 0, whole)
		sub16 := d.add(gp.sub16, 2, 0, whole)
		d.add(gp.sub8, 1, 0, whole)
		if gp.high8 != "" {
			// The high byte overlays bits 8..15 of the 16-bit view.
			d.add(gp.high8, 1, 1, sub16)
		}
	}
	for i := 0; i < 16; i++ {
		d.add("xmm"+strconv.Itoa(i), 16, 0, NoRegID)
	}
	d.pc = d.add("rip", 8, 0, NoRegID)
	return d
}

func (d *AMD64Directory) add(name string, size, offset int, parent RegID) RegID {
	value, err := safecast.Conv[uint16](len(d.regs))
	if err != nil {
		panic(fmt.Errorf("register directory overflow: %w", err))
	}
	id := RegID(value)
	d.regs = append(d.regs, Register{
		ID:     id,
		Name:   name,
		Size:   size,
		Offset: offset,
		Parent: parent,
	})
	d.byName[name] = id
	if parent.IsValid() {
		d.regs[parent].Sub = append(d.regs[parent].Sub, id)
	}
	return id
}

// Base returns the module load address.
func (d *AMD64Directory) Base() uint64 { return d.base }

// PointerSize returns 8 for x86-64.
func (d *AMD64Directory) PointerSize() int { return 8 }

// ProgramCounter returns rip.
func (d *AMD64Directory) ProgramCounter() RegID { return d.pc }

// RegisterByName resolves a register by its lower-case assembler name.
func (d *AMD64Directory) RegisterByName(name string) (Register, bool) {
	id, ok := d.byName[strings.ToLower(name)]
	if !ok {
		return Register{}, false
	}
	return d.regs[id], true
}

// RegisterByID resolves a register by canonical id.
func (d *AMD64Directory) RegisterByID(id RegID) (Register, bool) {
	if !id.IsValid() || int(id) >= len(d.regs) {
		return Register{}, false
	}
	return d.regs[id], true
}
