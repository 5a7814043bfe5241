package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"symforge/internal/symbols"
	"symforge/internal/symerr"
)

func TestRoundTrip(t *testing.T) {
	st := symbols.NewStore(symbols.Hints{}, symbols.DefaultOptions(), zerolog.Nop())
	i32, err := st.NewBasic("int", symbols.BasicInt, 4)
	require.NoError(t, err)
	udt, err := st.NewUDT("Point")
	require.NoError(t, err)
	fieldX, err := st.AddField(udt, "x", i32, symbols.AutoOffset)
	require.NoError(t, err)
	doomed, err := st.NewBasic("char", symbols.BasicChar, 1)
	require.NoError(t, err)
	require.NoError(t, st.Delete(doomed))
	fn, err := st.NewFunction("main", i32, []symbols.Range{{Offset: 0x1000, Size: 0x40}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "set.mp")
	require.NoError(t, Save(path, st, "x86_64-pc-windows-msvc"))

	loaded, triple, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "x86_64-pc-windows-msvc", triple)

	// Ids survive, including the zombie gap.
	got, err := loaded.FindByName("Point")
	require.NoError(t, err)
	require.Equal(t, udt, got)
	_, err = loaded.Get(doomed)
	require.ErrorIs(t, err, symerr.NotFound)

	sym, err := loaded.Get(udt)
	require.NoError(t, err)
	require.Equal(t, []symbols.SymbolID{fieldX}, sym.Children)

	// Dependency edges survive: the field still notifies the struct.
	require.Equal(t, 1, loaded.DependentCount(fieldX, udt))
	require.Equal(t, 1, loaded.DependentCount(i32, fieldX))

	// Address index rebuilt.
	found, residual, err := loaded.FindByOffset(0x1010, false)
	require.NoError(t, err)
	require.Equal(t, fn, found)
	require.Equal(t, uint64(0x10), residual)
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.mp")
	stale := Payload{Schema: schemaVersion + 1}
	raw, err := msgpack.Marshal(&stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, _, err = Load(path, zerolog.Nop())
	require.ErrorIs(t, err, symerr.Unsupported)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "absent.mp"), zerolog.Nop())
	require.Error(t, err)
}
