package symbols

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"symforge/internal/symerr"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(Hints{}, DefaultOptions(), zerolog.Nop())
}

func mustBasic(t *testing.T, st *Store, name string, kind BasicKind, size int) SymbolID {
	t.Helper()
	id, err := st.NewBasic(name, kind, size)
	require.NoError(t, err)
	return id
}

func TestAddAssignsDenseIDs(t *testing.T) {
	st := newStore(t)
	a := mustBasic(t, st, "int", BasicInt, 4)
	b := mustBasic(t, st, "char", BasicChar, 1)
	require.Equal(t, SymbolID(1), a)
	require.Equal(t, SymbolID(2), b)
	require.False(t, NoSymbolID.IsValid())
}

func TestDeleteLeavesZombie(t *testing.T) {
	st := newStore(t)
	a := mustBasic(t, st, "int", BasicInt, 4)
	require.NoError(t, st.Delete(a))

	_, err := st.Get(a)
	require.ErrorIs(t, err, symerr.NotFound)
	require.ErrorIs(t, st.Delete(a), symerr.NotFound)

	// The slot is never reused.
	b := mustBasic(t, st, "char", BasicChar, 1)
	require.NotEqual(t, a, b)
	_, err = st.Get(a)
	require.ErrorIs(t, err, symerr.NotFound)
}

func TestQualifiedNames(t *testing.T) {
	st := newStore(t)
	i32 := mustBasic(t, st, "int", BasicInt, 4)
	fn, err := st.NewFunction("main", i32, []Range{{Offset: 0x1000, Size: 0x20}})
	require.NoError(t, err)
	p, err := st.AddParameter(fn, "argc", i32)
	require.NoError(t, err)
	require.Equal(t, "main::argc", st.MustGet(p).Qualified)
}

func TestFindByNameMissesCleanly(t *testing.T) {
	st := newStore(t)
	_, err := st.FindByName("ghost")
	require.ErrorIs(t, err, symerr.NotFound)
}

func TestFindByOffsetFunctionRanges(t *testing.T) {
	st := newStore(t)
	i32 := mustBasic(t, st, "int", BasicInt, 4)
	fn, err := st.NewFunction("split", i32, []Range{
		{Offset: 0x1000, Size: 0x20},
		{Offset: 0x2000, Size: 0x10},
	})
	require.NoError(t, err)

	id, residual, err := st.FindByOffset(0x1004, false)
	require.NoError(t, err)
	require.Equal(t, fn, id)
	require.Equal(t, uint64(4), residual)

	// Secondary ranges hit too; residual is from the primary range.
	id, _, err = st.FindByOffset(0x2008, false)
	require.NoError(t, err)
	require.Equal(t, fn, id)

	_, _, err = st.FindByOffset(0x1004, true)
	require.ErrorIs(t, err, symerr.NotFound)
	_, _, err = st.FindByOffset(0x1000, true)
	require.NoError(t, err)
	_, _, err = st.FindByOffset(0x3000, false)
	require.ErrorIs(t, err, symerr.NotFound)
}

func TestFindByOffsetPublicNearestBefore(t *testing.T) {
	st := newStore(t)
	pub, err := st.NewPublic("_start", 0x4000)
	require.NoError(t, err)
	later, err := st.NewPublic("_later", 0x5000)
	require.NoError(t, err)

	id, residual, err := st.FindByOffset(0x4abc, false)
	require.NoError(t, err)
	require.Equal(t, pub, id)
	require.Equal(t, uint64(0xabc), residual)

	id, residual, err = st.FindByOffset(0x5000, false)
	require.NoError(t, err)
	require.Equal(t, later, id)
	require.Equal(t, uint64(0), residual)

	_, _, err = st.FindByOffset(0x3fff, false)
	require.ErrorIs(t, err, symerr.NotFound)
}

func TestDeletedSymbolLeavesIndex(t *testing.T) {
	st := newStore(t)
	i32 := mustBasic(t, st, "int", BasicInt, 4)
	fn, err := st.NewFunction("gone", i32, []Range{{Offset: 0x1000, Size: 0x20}})
	require.NoError(t, err)
	require.NoError(t, st.Delete(fn))

	_, _, err = st.FindByOffset(0x1000, false)
	require.ErrorIs(t, err, symerr.NotFound)
	_, err = st.FindByName("gone")
	require.ErrorIs(t, err, symerr.NotFound)
}

func TestDependencyRefcountSymmetry(t *testing.T) {
	st := newStore(t)
	i32 := mustBasic(t, st, "int", BasicInt, 4)
	udt, err := st.NewUDT("Twice")
	require.NoError(t, err)
	f1, err := st.AddField(udt, "a", i32, AutoOffset)
	require.NoError(t, err)
	f2, err := st.AddField(udt, "b", i32, AutoOffset)
	require.NoError(t, err)

	require.Equal(t, 1, st.DependentCount(i32, f1))
	require.Equal(t, 1, st.DependentCount(i32, f2))

	// Manual edges are refcounted: two adds need two removes.
	st.AddDependentNotify(i32, udt)
	st.AddDependentNotify(i32, udt)
	require.Equal(t, 2, st.DependentCount(i32, udt))
	st.RemoveDependentNotify(i32, udt)
	require.Equal(t, 1, st.DependentCount(i32, udt))
	st.RemoveDependentNotify(i32, udt)
	require.Equal(t, 0, st.DependentCount(i32, udt))

	// Removing an absent edge is a no-op.
	st.RemoveDependentNotify(i32, udt)
	require.Equal(t, 0, st.DependentCount(i32, udt))
}

func TestNotifyReachesTransitiveDependents(t *testing.T) {
	st := newStore(t)
	var seen []SymbolID
	st.SetRecomputeHook(func(_ *Store, id SymbolID) {
		seen = append(seen, id)
	})
	i32 := mustBasic(t, st, "int", BasicInt, 4)
	udt, err := st.NewUDT("Box")
	require.NoError(t, err)
	f, err := st.AddField(udt, "v", i32, AutoOffset)
	require.NoError(t, err)

	seen = nil
	st.NotifyDependentChange(i32)
	require.Contains(t, seen, i32)
	require.Contains(t, seen, f)
	require.Contains(t, seen, udt)
}

func TestFunctionTypeMemoized(t *testing.T) {
	st := newStore(t)
	i32 := mustBasic(t, st, "int", BasicInt, 4)
	fnA, err := st.NewFunction("a", i32, []Range{{Offset: 0x1000, Size: 8}})
	require.NoError(t, err)
	fnB, err := st.NewFunction("b", i32, []Range{{Offset: 0x2000, Size: 8}})
	require.NoError(t, err)
	_, err = st.AddParameter(fnA, "x", i32)
	require.NoError(t, err)
	_, err = st.AddParameter(fnB, "y", i32)
	require.NoError(t, err)

	ta, err := st.FunctionType(fnA)
	require.NoError(t, err)
	tb, err := st.FunctionType(fnB)
	require.NoError(t, err)
	require.Equal(t, ta, tb)

	// Adding a parameter invalidates the memo and yields a new shape.
	_, err = st.AddParameter(fnA, "z", i32)
	require.NoError(t, err)
	ta2, err := st.FunctionType(fnA)
	require.NoError(t, err)
	require.NotEqual(t, ta, ta2)

	// The other function keeps the old shape.
	tb2, err := st.FunctionType(fnB)
	require.NoError(t, err)
	require.Equal(t, ta, tb2)
}

func TestFunctionRangesMustBeDisjoint(t *testing.T) {
	st := newStore(t)
	i32 := mustBasic(t, st, "int", BasicInt, 4)
	_, err := st.NewFunction("bad", i32, []Range{
		{Offset: 0x1000, Size: 0x20},
		{Offset: 0x1010, Size: 0x20},
	})
	require.ErrorIs(t, err, symerr.InvalidArgument)

	fn, err := st.NewFunction("ok", i32, []Range{{Offset: 0x1000, Size: 0x20}})
	require.NoError(t, err)
	require.ErrorIs(t, st.AddFunctionRange(fn, Range{Offset: 0x101f, Size: 4}), symerr.InvalidArgument)
	require.NoError(t, st.AddFunctionRange(fn, Range{Offset: 0x1020, Size: 4}))
}

func TestLiveRangesRejectOverlap(t *testing.T) {
	st := newStore(t)
	i32 := mustBasic(t, st, "int", BasicInt, 4)
	fn, err := st.NewFunction("f", i32, []Range{{Offset: 0x1000, Size: 0x40}})
	require.NoError(t, err)
	p, err := st.AddParameter(fn, "x", i32)
	require.NoError(t, err)

	require.NoError(t, st.SetLiveRanges(p, []LiveRange{
		{Offset: 0, Size: 0x10},
		{Offset: 0x10, Size: 0x10},
	}))
	require.ErrorIs(t, st.AddLiveRange(p, LiveRange{Offset: 0xf, Size: 4}), symerr.InvalidArgument)
	require.ErrorIs(t, st.SetLiveRanges(p, []LiveRange{
		{Offset: 0, Size: 0x10},
		{Offset: 8, Size: 0x10},
	}), symerr.InvalidArgument)
}

func TestMoveChildReorders(t *testing.T) {
	st := newStore(t)
	i32 := mustBasic(t, st, "int", BasicInt, 4)
	udt, err := st.NewUDT("S")
	require.NoError(t, err)
	a, err := st.AddField(udt, "a", i32, AutoOffset)
	require.NoError(t, err)
	b, err := st.AddField(udt, "b", i32, AutoOffset)
	require.NoError(t, err)

	require.NoError(t, st.MoveChild(udt, 1, 0))
	require.Equal(t, []SymbolID{b, a}, st.MustGet(udt).Children)
	require.ErrorIs(t, st.MoveChild(udt, 5, 0), symerr.InvalidArgument)
}

func TestInvalidationListenerPanicsAreContained(t *testing.T) {
	st := newStore(t)
	fired := 0
	st.AddInvalidationListener(func() { panic("listener broke") })
	st.AddInvalidationListener(func() { fired++ })

	_, err := st.NewBasic("int", BasicInt, 4)
	require.NoError(t, err)
	require.Equal(t, 1, fired)
}

type stubImporter struct {
	name  string
	calls int
}

func (im *stubImporter) ImportByName(st *Store, name string) (bool, error) {
	im.calls++
	if name != im.name {
		return false, nil
	}
	_, err := st.NewBasic(name, BasicInt, 4)
	return true, err
}

func TestImporterChainConsultedOnMiss(t *testing.T) {
	st := newStore(t)
	im := &stubImporter{name: "imported_t"}
	st.RegisterImporter(im)

	id, err := st.FindByName("imported_t")
	require.NoError(t, err)
	require.Equal(t, "imported_t", st.MustGet(id).Name)
	require.Equal(t, 1, im.calls)

	// A hit never re-consults the importer.
	_, err = st.FindByName("imported_t")
	require.NoError(t, err)
	require.Equal(t, 1, im.calls)
}
