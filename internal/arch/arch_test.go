package arch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalWalksToOwner(t *testing.T) {
	dir := AMD64(0)
	rcx, ok := dir.RegisterByName("rcx")
	require.True(t, ok)

	for _, name := range []string{"rcx", "ecx", "cx", "cl", "ch"} {
		reg, ok := dir.RegisterByName(name)
		require.True(t, ok, name)
		require.Equal(t, rcx.ID, Canonical(dir, reg.ID), name)
	}
}

func TestSubRegisterSelection(t *testing.T) {
	dir := AMD64(0)
	rcx, _ := dir.RegisterByName("rcx")

	cases := []struct {
		size int
		want string
	}{
		{8, "rcx"},
		{4, "ecx"},
		{2, "cx"},
		{1, "cl"},
		// No exact fit: the largest sub-register at offset 0 that still
		// fits wins.
		{3, "cx"},
		{6, "ecx"},
	}
	for _, tc := range cases {
		got, ok := dir.RegisterByID(SubRegister(dir, rcx.ID, tc.size))
		require.True(t, ok)
		require.Equal(t, tc.want, got.Name, "size %d", tc.size)
	}
}

func TestSubRegisterHighByteNotAtOffsetZero(t *testing.T) {
	dir := AMD64(0)
	rcx, _ := dir.RegisterByName("rcx")
	// ch sits at byte offset 1, so a 1-byte view must be cl, never ch.
	got, ok := dir.RegisterByID(SubRegister(dir, rcx.ID, 1))
	require.True(t, ok)
	require.Equal(t, "cl", got.Name)
}

func TestXMMHasNoNarrowViews(t *testing.T) {
	dir := AMD64(0)
	xmm1, ok := dir.RegisterByName("xmm1")
	require.True(t, ok)
	require.Equal(t, 16, xmm1.Size)
	// Narrower requests stay on the register itself.
	require.Equal(t, xmm1.ID, SubRegister(dir, xmm1.ID, 8))
}

func TestUnknownRegisterName(t *testing.T) {
	dir := AMD64(0)
	_, ok := dir.RegisterByName("zz9")
	require.False(t, ok)
	_, ok = dir.RegisterByID(NoRegID)
	require.False(t, ok)
}

func TestPointerSize(t *testing.T) {
	dir := AMD64(0x400000)
	require.Equal(t, 8, dir.PointerSize())
	require.Equal(t, uint64(0x400000), dir.Base())
}
