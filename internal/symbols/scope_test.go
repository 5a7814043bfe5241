package symbols

import (
	"testing"

	"github.com/stretchr/testify/require"

	"symforge/internal/arch"
	"symforge/internal/callconv"
	"symforge/internal/symerr"
)

func TestScopeAtBindsCoveringRanges(t *testing.T) {
	st := newStore(t)
	dir := arch.AMD64(0)
	rcx, ok := dir.RegisterByName("rcx")
	require.True(t, ok)
	rbx, ok := dir.RegisterByName("rbx")
	require.True(t, ok)

	i32 := mustBasic(t, st, "int", BasicInt, 4)
	fn, err := st.NewFunction("f", i32, []Range{{Offset: 0x1000, Size: 0x40}})
	require.NoError(t, err)
	p, err := st.AddParameter(fn, "x", i32)
	require.NoError(t, err)
	l, err := st.AddLocal(fn, "tmp", i32)
	require.NoError(t, err)

	require.NoError(t, st.SetLiveRanges(p, []LiveRange{
		{Offset: 0, Size: 0x10, Loc: callconv.Location{Kind: callconv.LocRegister, Reg: rcx.ID, Size: 4}},
		{Offset: 0x20, Size: 0x10, Loc: callconv.Location{Kind: callconv.LocRegister, Reg: rbx.ID, Size: 4}},
	}))
	require.NoError(t, st.SetLiveRanges(l, []LiveRange{
		{Offset: 0x8, Size: 0x8, Loc: callconv.Location{Kind: callconv.LocRegister, Reg: rbx.ID, Size: 4}},
	}))

	vars, err := st.ScopeAt(dir, fn, 0xc)
	require.NoError(t, err)
	require.Len(t, vars, 2)
	byName := map[string]BoundVariable{}
	for _, v := range vars {
		byName[v.Name] = v
	}
	require.Equal(t, "rcx", byName["x"].Where)
	require.Equal(t, SymbolParameter, byName["x"].Kind)
	require.Equal(t, "rbx", byName["tmp"].Where)

	// The gap between x's two ranges binds only the local.
	vars, err = st.ScopeAt(dir, fn, 0x1c)
	require.NoError(t, err)
	require.Empty(t, vars)

	vars, err = st.ScopeAt(dir, fn, 0x24)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	require.Equal(t, "x", vars[0].Name)
	require.Equal(t, "rbx", vars[0].Where)
}

func TestScopeAtRejectsOutOfBody(t *testing.T) {
	st := newStore(t)
	i32 := mustBasic(t, st, "int", BasicInt, 4)
	fn, err := st.NewFunction("f", i32, []Range{{Offset: 0x1000, Size: 0x40}})
	require.NoError(t, err)

	_, err = st.ScopeAt(arch.AMD64(0), fn, 0x40)
	require.ErrorIs(t, err, symerr.InvalidArgument)
}

func TestScopeAtReturnsFreshValues(t *testing.T) {
	st := newStore(t)
	dir := arch.AMD64(0)
	rcx, ok := dir.RegisterByName("rcx")
	require.True(t, ok)

	i32 := mustBasic(t, st, "int", BasicInt, 4)
	fn, err := st.NewFunction("f", i32, []Range{{Offset: 0x1000, Size: 0x40}})
	require.NoError(t, err)
	p, err := st.AddParameter(fn, "x", i32)
	require.NoError(t, err)
	require.NoError(t, st.SetLiveRanges(p, []LiveRange{
		{Offset: 0, Size: 0x10, Loc: callconv.Location{Kind: callconv.LocRegister, Reg: rcx.ID, Size: 4}},
	}))

	first, err := st.ScopeAt(dir, fn, 0)
	require.NoError(t, err)
	second, err := st.ScopeAt(dir, fn, 0)
	require.NoError(t, err)
	first[0].Where = "clobbered"
	require.Equal(t, "rcx", second[0].Where)
}

func TestScopeAtContextResolvesInstructionPointer(t *testing.T) {
	st := newStore(t)
	dir := arch.AMD64(0x400000)
	rcx, ok := dir.RegisterByName("rcx")
	require.True(t, ok)
	rbx, ok := dir.RegisterByName("rbx")
	require.True(t, ok)

	i32 := mustBasic(t, st, "int", BasicInt, 4)
	// Two disjoint code ranges: offsets accumulate across them, so an
	// instruction pointer in the second range binds past the first.
	fn, err := st.NewFunction("f", i32, []Range{
		{Offset: 0x1000, Size: 0x10},
		{Offset: 0x2000, Size: 0x10},
	})
	require.NoError(t, err)
	p, err := st.AddParameter(fn, "x", i32)
	require.NoError(t, err)
	require.NoError(t, st.SetLiveRanges(p, []LiveRange{
		{Offset: 0, Size: 0x10, Loc: callconv.Location{Kind: callconv.LocRegister, Reg: rcx.ID, Size: 4}},
		{Offset: 0x10, Size: 0x10, Loc: callconv.Location{Kind: callconv.LocRegister, Reg: rbx.ID, Size: 4}},
	}))

	ctx := RegValues{dir.ProgramCounter(): 0x400000 + 0x2004}
	vars, err := st.ScopeAtContext(dir, fn, ctx)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	require.Equal(t, "x", vars[0].Name)
	require.Equal(t, "rbx", vars[0].Where)

	ctx = RegValues{dir.ProgramCounter(): 0x400000 + 0x1004}
	vars, err = st.ScopeAtContext(dir, fn, ctx)
	require.NoError(t, err)
	require.Len(t, vars, 1)
	require.Equal(t, "rcx", vars[0].Where)
}

func TestScopeAtContextRejectsBadContext(t *testing.T) {
	st := newStore(t)
	dir := arch.AMD64(0)
	i32 := mustBasic(t, st, "int", BasicInt, 4)
	fn, err := st.NewFunction("f", i32, []Range{{Offset: 0x1000, Size: 0x40}})
	require.NoError(t, err)

	_, err = st.ScopeAtContext(dir, fn, RegValues{})
	require.ErrorIs(t, err, symerr.InvalidArgument)

	_, err = st.ScopeAtContext(dir, fn, RegValues{dir.ProgramCounter(): 0x3000})
	require.ErrorIs(t, err, symerr.InvalidArgument)
}
