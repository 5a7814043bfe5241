package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"symforge/internal/project"
	"symforge/internal/symbols"
	"symforge/internal/symerr"
)

const libraryManifest = `
[module]
name = "runtimelib"
target = "x86_64-pc-windows-msvc"

[[types.basic]]
name = "int"
kind = "int"
size = 4

[[types.udt]]
name = "FILE"

  [[types.udt.fields]]
  name = "fd"
  type = "int"

[[functions]]
name = "fopen"
return = "FILE*"
ranges = [{ offset = 0x7000, size = 0x80 }]

  [[functions.params]]
  name = "mode"
  type = "int"
`

func loadLibrary(t *testing.T) *project.Manifest {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symforge.toml")
	require.NoError(t, os.WriteFile(path, []byte(libraryManifest), 0o644))
	m, err := project.Load(path)
	require.NoError(t, err)
	return m
}

func TestImportOnNameMiss(t *testing.T) {
	st := symbols.NewStore(symbols.Hints{}, symbols.DefaultOptions(), zerolog.Nop())
	st.RegisterImporter(NewManifest(loadLibrary(t), zerolog.Nop()))

	// The miss pulls FILE in, and FILE's field pulls int in behind it.
	id, err := st.FindByName("FILE")
	require.NoError(t, err)
	sym, err := st.Get(id)
	require.NoError(t, err)
	require.Equal(t, symbols.SymbolUDT, sym.Kind)
	require.Len(t, sym.Children, 1)

	_, err = st.FindByName("int")
	require.NoError(t, err)
}

func TestImportFunctionPullsReturnType(t *testing.T) {
	st := symbols.NewStore(symbols.Hints{}, symbols.DefaultOptions(), zerolog.Nop())
	st.RegisterImporter(NewManifest(loadLibrary(t), zerolog.Nop()))

	fn, err := st.FindByName("fopen")
	require.NoError(t, err)
	sym, err := st.Get(fn)
	require.NoError(t, err)
	require.Equal(t, symbols.SymbolFunction, sym.Kind)

	ret, err := st.Get(sym.ReturnType)
	require.NoError(t, err)
	require.Equal(t, symbols.SymbolPointer, ret.Kind)
}

func TestImportMissStaysNotFound(t *testing.T) {
	st := symbols.NewStore(symbols.Hints{}, symbols.DefaultOptions(), zerolog.Nop())
	st.RegisterImporter(NewManifest(loadLibrary(t), zerolog.Nop()))

	_, err := st.FindByName("nothing_here")
	require.ErrorIs(t, err, symerr.NotFound)
}

func TestImportHappensOnce(t *testing.T) {
	st := symbols.NewStore(symbols.Hints{}, symbols.DefaultOptions(), zerolog.Nop())
	st.RegisterImporter(NewManifest(loadLibrary(t), zerolog.Nop()))

	first, err := st.FindByName("FILE")
	require.NoError(t, err)
	second, err := st.FindByName("FILE")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestImportOnOffsetMiss(t *testing.T) {
	st := symbols.NewStore(symbols.Hints{}, symbols.DefaultOptions(), zerolog.Nop())
	st.RegisterImporter(NewManifest(loadLibrary(t), zerolog.Nop()))

	// An address inside fopen's code range pulls the function in, along
	// with its return and parameter types.
	id, residual, err := st.FindByOffset(0x7010, false)
	require.NoError(t, err)
	require.Equal(t, uint64(0x10), residual)
	sym, err := st.Get(id)
	require.NoError(t, err)
	require.Equal(t, "fopen", sym.Name)

	_, err = st.FindByName("FILE")
	require.NoError(t, err)

	// Addresses no declaration covers still miss.
	_, _, err = st.FindByOffset(0x9000, false)
	require.ErrorIs(t, err, symerr.NotFound)
}
