// Package disasm defines the narrow contract the symbol core consumes
// from a disassembler: basic blocks with instructions, operand
// descriptors, and outbound control-flow edges. The core never decodes
// instruction bytes itself.
package disasm

import "symforge/internal/arch"

// OperandFlags describe one operand's role and addressing class.
type OperandFlags uint8

const (
	OpIn OperandFlags = 1 << iota
	OpOut
	OpRegister
	OpMemory
	OpImmediate
)

// Has reports whether all given flags are set.
func (f OperandFlags) Has(flags OperandFlags) bool { return f&flags == flags }

// Operand describes one instruction operand. Register operands carry the
// canonical ids of every register they touch; memory operands additionally
// carry the index scale.
type Operand struct {
	Flags OperandFlags
	Regs  []arch.RegID
	Scale int
	Imm   int64
}

// Instruction is one decoded instruction.
type Instruction struct {
	Addr     uint64 // module-relative
	Len      int
	Mnemonic string
	IsCall   bool
	Operands []Operand
}

// End returns the address just past the instruction.
func (i Instruction) End() uint64 { return i.Addr + uint64(i.Len) }

// Edge is one outbound control-flow edge of a block.
type Edge struct {
	To   uint64 // destination block start address
	From uint64 // originating instruction address
}

// Block is one basic block of a disassembled function.
type Block struct {
	Start  uint64
	End    uint64
	Instrs []Instruction
	Edges  []Edge
}

// Disassembler turns the code at a function's entry into basic blocks.
// Implementations are synchronous and assumed to return promptly.
type Disassembler interface {
	DisassembleFunction(addr uint64) ([]Block, error)
}

// movMnemonics are the register-to-register copy family: a single-input
// write-through that opens a location alias rather than plainly killing
// the source.
var movMnemonics = map[string]struct{}{
	"mov": {}, "movzx": {}, "movsx": {}, "movsxd": {},
	"movaps": {}, "movapd": {}, "movups": {}, "movupd": {},
	"movss": {}, "movsd": {}, "movd": {}, "movq": {},
}

// IsMovLike reports whether the mnemonic is a plain copy instruction.
func IsMovLike(mnemonic string) bool {
	_, ok := movMnemonics[mnemonic]
	return ok
}
