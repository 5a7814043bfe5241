package disasm

import (
	"sort"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"symforge/internal/arch"
	"symforge/internal/symerr"
)

// AMD64 disassembles raw x86-64 code bytes into the block model using
// golang.org/x/arch. It holds one contiguous code region at a
// module-relative base offset.
type AMD64 struct {
	dir  arch.Directory
	code []byte
	base uint64
}

// NewAMD64 wraps a code region starting at the module-relative offset
// base.
func NewAMD64(dir arch.Directory, code []byte, base uint64) *AMD64 {
	return &AMD64{dir: dir, code: code, base: base}
}

// DisassembleFunction decodes from addr to the end of the region, then
// splits the instruction stream at branch targets and branch successors.
func (d *AMD64) DisassembleFunction(addr uint64) ([]Block, error) {
	if addr < d.base || addr >= d.base+uint64(len(d.code)) {
		return nil, symerr.New(symerr.KindInvalidArgument,
			"address %#x is outside the code region [%#x,%#x)", addr, d.base, d.base+uint64(len(d.code)))
	}
	instrs, err := d.decode(addr)
	if err != nil {
		return nil, err
	}
	return splitBlocks(instrs), nil
}

func (d *AMD64) decode(addr uint64) ([]Instruction, error) {
	var out []Instruction
	pos := addr - d.base
	for pos < uint64(len(d.code)) {
		inst, err := x86asm.Decode(d.code[pos:], 64)
		if err != nil {
			return nil, symerr.Wrap(symerr.KindUnexpected, err,
				"undecodable instruction at %#x", d.base+pos)
		}
		out = append(out, d.convert(inst, d.base+pos))
		pos += uint64(inst.Len)
		if inst.Op == x86asm.RET {
			break
		}
	}
	if len(out) == 0 {
		return nil, symerr.New(symerr.KindUnexpected, "no instructions at %#x", addr)
	}
	return out, nil
}

func (d *AMD64) convert(inst x86asm.Inst, addr uint64) Instruction {
	mnemonic := strings.ToLower(inst.Op.String())
	conv := Instruction{
		Addr:     addr,
		Len:      inst.Len,
		Mnemonic: mnemonic,
		IsCall:   inst.Op == x86asm.CALL,
	}
	writeThrough := IsMovLike(mnemonic) || mnemonic == "lea"
	for i, a := range inst.Args {
		if a == nil {
			break
		}
		var op Operand
		// First operand is the destination on x86; it is also read
		// unless the instruction is a plain copy.
		if i == 0 {
			op.Flags |= OpOut
			if !writeThrough {
				op.Flags |= OpIn
			}
		} else {
			op.Flags |= OpIn
		}
		switch v := a.(type) {
		case x86asm.Reg:
			op.Flags |= OpRegister
			if id, ok := d.regID(v); ok {
				op.Regs = append(op.Regs, id)
			}
		case x86asm.Mem:
			op.Flags |= OpMemory
			// The address computation only reads its registers,
			// whatever the operand's data direction.
			op.Flags = (op.Flags &^ OpOut) | OpIn
			if i == 0 {
				op.Flags |= OpOut
			}
			if id, ok := d.regID(v.Base); ok {
				op.Regs = append(op.Regs, id)
			}
			if id, ok := d.regID(v.Index); ok {
				op.Regs = append(op.Regs, id)
				op.Scale = int(v.Scale)
			}
		case x86asm.Imm:
			op.Flags |= OpImmediate
			op.Flags &^= OpOut
			op.Imm = int64(v)
		case x86asm.Rel:
			op.Flags |= OpImmediate
			op.Flags &^= OpOut
			op.Imm = int64(v) + int64(addr) + int64(inst.Len)
		default:
			continue
		}
		conv.Operands = append(conv.Operands, op)
	}
	return conv
}

// x86asm names the REX-encoded byte registers SPB/BPB/SIB/DIB; the
// directory uses the assembler spellings.
var regSpellings = map[string]string{
	"spb": "spl",
	"bpb": "bpl",
	"sib": "sil",
	"dib": "dil",
}

func (d *AMD64) regID(reg x86asm.Reg) (arch.RegID, bool) {
	if reg == 0 {
		return arch.NoRegID, false
	}
	name := strings.ToLower(reg.String())
	if spelling, ok := regSpellings[name]; ok {
		name = spelling
	}
	info, ok := d.dir.RegisterByName(name)
	if !ok {
		return arch.NoRegID, false
	}
	return info.ID, true
}

// splitBlocks derives basic blocks: leaders are the entry, every branch
// target inside the stream, and every instruction after a branch.
func splitBlocks(instrs []Instruction) []Block {
	leaders := map[uint64]struct{}{instrs[0].Addr: {}}
	within := map[uint64]struct{}{}
	for _, in := range instrs {
		within[in.Addr] = struct{}{}
	}
	for _, in := range instrs {
		if target, ok := branchTarget(in); ok {
			if _, inside := within[target]; inside {
				leaders[target] = struct{}{}
			}
			leaders[in.End()] = struct{}{}
		}
		if in.Mnemonic == "ret" {
			leaders[in.End()] = struct{}{}
		}
	}

	starts := make([]uint64, 0, len(leaders))
	for addr := range leaders {
		starts = append(starts, addr)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	isLeader := func(addr uint64) bool {
		_, ok := leaders[addr]
		return ok
	}

	var blocks []Block
	var cur *Block
	for _, in := range instrs {
		if cur == nil || isLeader(in.Addr) {
			blocks = append(blocks, Block{Start: in.Addr})
			cur = &blocks[len(blocks)-1]
		}
		cur.Instrs = append(cur.Instrs, in)
		cur.End = in.End()
	}

	blockAt := map[uint64]int{}
	for i, b := range blocks {
		blockAt[b.Start] = i
	}
	for i := range blocks {
		b := &blocks[i]
		last := b.Instrs[len(b.Instrs)-1]
		if target, ok := branchTarget(last); ok {
			if _, inside := blockAt[target]; inside {
				b.Edges = append(b.Edges, Edge{To: target, From: last.Addr})
			}
			if isConditional(last.Mnemonic) {
				if _, inside := blockAt[last.End()]; inside {
					b.Edges = append(b.Edges, Edge{To: last.End(), From: last.Addr})
				}
			}
			continue
		}
		if last.Mnemonic == "ret" {
			continue
		}
		if _, inside := blockAt[last.End()]; inside {
			b.Edges = append(b.Edges, Edge{To: last.End(), From: last.Addr})
		}
	}
	return blocks
}

func branchTarget(in Instruction) (uint64, bool) {
	if !isBranch(in.Mnemonic) {
		return 0, false
	}
	for _, op := range in.Operands {
		if op.Flags.Has(OpImmediate) {
			if op.Imm < 0 {
				return 0, false
			}
			return uint64(op.Imm), true
		}
	}
	return 0, false
}

func isBranch(mnemonic string) bool {
	if mnemonic == "jmp" {
		return true
	}
	return isConditional(mnemonic)
}

var conditionalBranches = map[string]struct{}{
	"ja": {}, "jae": {}, "jb": {}, "jbe": {}, "je": {}, "jne": {},
	"jg": {}, "jge": {}, "jl": {}, "jle": {}, "js": {}, "jns": {},
	"jo": {}, "jno": {}, "jp": {}, "jnp": {}, "jcxz": {}, "jecxz": {}, "jrcxz": {},
}

func isConditional(mnemonic string) bool {
	_, ok := conditionalBranches[mnemonic]
	return ok
}
