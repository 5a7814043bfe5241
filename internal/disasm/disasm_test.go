package disasm

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/arch/x86/x86asm"

	"symforge/internal/arch"
	"symforge/internal/symerr"
)

func TestStraightLineSingleBlock(t *testing.T) {
	// xor eax, eax; mov rbx, rcx; ret
	code := []byte{0x31, 0xc0, 0x48, 0x89, 0xcb, 0xc3}
	d := NewAMD64(arch.AMD64(0), code, 0x1000)

	blocks, err := d.DisassembleFunction(0x1000)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, uint64(0x1000), blocks[0].Start)
	require.Equal(t, uint64(0x1006), blocks[0].End)
	require.Len(t, blocks[0].Instrs, 3)
	require.Empty(t, blocks[0].Edges)
	require.Equal(t, "ret", blocks[0].Instrs[2].Mnemonic)
}

func TestConditionalBranchSplitsBlocks(t *testing.T) {
	// 0x1000: xor eax, eax
	// 0x1002: je 0x1006
	// 0x1004: mov eax, ecx
	// 0x1006: ret
	code := []byte{0x31, 0xc0, 0x74, 0x02, 0x89, 0xc8, 0xc3}
	d := NewAMD64(arch.AMD64(0), code, 0x1000)

	blocks, err := d.DisassembleFunction(0x1000)
	require.NoError(t, err)
	require.Len(t, blocks, 3)

	require.Equal(t, uint64(0x1000), blocks[0].Start)
	require.Equal(t, uint64(0x1004), blocks[0].End)
	require.ElementsMatch(t, []Edge{
		{To: 0x1006, From: 0x1002},
		{To: 0x1004, From: 0x1002},
	}, blocks[0].Edges)

	require.Equal(t, uint64(0x1004), blocks[1].Start)
	require.Equal(t, []Edge{{To: 0x1006, From: 0x1004}}, blocks[1].Edges)

	require.Equal(t, uint64(0x1006), blocks[2].Start)
	require.Empty(t, blocks[2].Edges)
}

func TestMovOperandDirections(t *testing.T) {
	// mov eax, ecx; ret
	code := []byte{0x89, 0xc8, 0xc3}
	dir := arch.AMD64(0)
	d := NewAMD64(dir, code, 0)

	blocks, err := d.DisassembleFunction(0)
	require.NoError(t, err)
	mov := blocks[0].Instrs[0]
	require.Equal(t, "mov", mov.Mnemonic)
	require.True(t, IsMovLike(mov.Mnemonic))
	require.Len(t, mov.Operands, 2)

	dst, src := mov.Operands[0], mov.Operands[1]
	require.True(t, dst.Flags.Has(OpOut|OpRegister))
	// A plain copy does not read its destination.
	require.False(t, dst.Flags.Has(OpIn))
	require.True(t, src.Flags.Has(OpIn|OpRegister))
	require.False(t, src.Flags.Has(OpOut))

	eax, _ := dir.RegisterByName("eax")
	ecx, _ := dir.RegisterByName("ecx")
	require.Equal(t, []arch.RegID{eax.ID}, dst.Regs)
	require.Equal(t, []arch.RegID{ecx.ID}, src.Regs)
}

func TestRMWReadsDestination(t *testing.T) {
	// xor eax, eax; ret
	code := []byte{0x31, 0xc0, 0xc3}
	d := NewAMD64(arch.AMD64(0), code, 0)

	blocks, err := d.DisassembleFunction(0)
	require.NoError(t, err)
	xor := blocks[0].Instrs[0]
	require.True(t, xor.Operands[0].Flags.Has(OpOut|OpIn|OpRegister))
}

func TestMemoryOperandCollectsAddressRegs(t *testing.T) {
	// mov [rsp+0x28], rcx; ret
	code := []byte{0x48, 0x89, 0x4c, 0x24, 0x28, 0xc3}
	dir := arch.AMD64(0)
	d := NewAMD64(dir, code, 0)

	blocks, err := d.DisassembleFunction(0)
	require.NoError(t, err)
	mov := blocks[0].Instrs[0]
	dst := mov.Operands[0]
	require.True(t, dst.Flags.Has(OpMemory|OpOut))
	// Address registers are reads, and the operand is not a register
	// write, so a register kill scan must skip it.
	require.False(t, dst.Flags.Has(OpRegister))
	rsp, _ := dir.RegisterByName("rsp")
	require.Equal(t, []arch.RegID{rsp.ID}, dst.Regs)
}

func TestCallMarksAndResolvesTarget(t *testing.T) {
	// call +0 (next instruction); ret
	code := []byte{0xe8, 0x00, 0x00, 0x00, 0x00, 0xc3}
	d := NewAMD64(arch.AMD64(0), code, 0x2000)

	blocks, err := d.DisassembleFunction(0x2000)
	require.NoError(t, err)
	call := blocks[0].Instrs[0]
	require.True(t, call.IsCall)
	require.True(t, call.Operands[0].Flags.Has(OpImmediate))
	require.Equal(t, int64(0x2005), call.Operands[0].Imm)
}

func TestOutOfRegionAddress(t *testing.T) {
	d := NewAMD64(arch.AMD64(0), []byte{0xc3}, 0x1000)
	_, err := d.DisassembleFunction(0x2000)
	require.ErrorIs(t, err, symerr.InvalidArgument)
	_, err = d.DisassembleFunction(0xfff)
	require.ErrorIs(t, err, symerr.InvalidArgument)
}

func TestMovLikeFamily(t *testing.T) {
	require.True(t, IsMovLike("movzx"))
	require.True(t, IsMovLike("movaps"))
	require.False(t, IsMovLike("add"))
	require.False(t, IsMovLike("xchg"))
}

func TestRexByteRegistersResolve(t *testing.T) {
	dir := arch.AMD64(0)
	// mov sil, cl; ret
	code := []byte{0x40, 0x88, 0xce, 0xc3}
	d := NewAMD64(dir, code, 0x1000)

	blocks, err := d.DisassembleFunction(0x1000)
	require.NoError(t, err)
	mov := blocks[0].Instrs[0]
	require.Equal(t, "mov", mov.Mnemonic)
	require.Len(t, mov.Operands, 2)
	sil, ok := dir.RegisterByName("sil")
	require.True(t, ok)
	require.Equal(t, []arch.RegID{sil.ID}, mov.Operands[0].Regs)
	cl, ok := dir.RegisterByName("cl")
	require.True(t, ok)
	require.Equal(t, []arch.RegID{cl.ID}, mov.Operands[1].Regs)

	// All four REX spellings map to the directory's byte registers.
	for asm, name := range map[x86asm.Reg]string{
		x86asm.SPB: "spl", x86asm.BPB: "bpl", x86asm.SIB: "sil", x86asm.DIB: "dil",
	} {
		id, ok := d.regID(asm)
		require.True(t, ok, name)
		reg, ok := dir.RegisterByID(id)
		require.True(t, ok, name)
		require.Equal(t, name, reg.Name)
	}
}
