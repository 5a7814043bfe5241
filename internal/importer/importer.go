// Package importer provides on-demand symbol sources for the store's
// lookup-miss fallback chain. The manifest importer serves declarations
// out of a secondary symforge.toml only when something asks for them by
// name or by address.
package importer

import (
	"github.com/rs/zerolog"

	"symforge/internal/project"
	"symforge/internal/symbols"
)

// ManifestImporter lazily materializes declarations from a library
// manifest. Each declaration is imported at most once.
type ManifestImporter struct {
	log      zerolog.Logger
	basics   map[string]project.BasicConfig
	udts     map[string]project.UDTConfig
	enums    map[string]project.EnumConfig
	typedefs map[string]project.TypedefConfig
	funcs    map[string]project.FunctionConfig
	globals  map[string]project.GlobalConfig

	// busy breaks recursion when a declaration's own types resolve back
	// through the importer chain.
	busy map[string]bool
}

// NewManifest indexes a library manifest for by-name import.
func NewManifest(m *project.Manifest, log zerolog.Logger) *ManifestImporter {
	im := &ManifestImporter{
		log:      log,
		basics:   make(map[string]project.BasicConfig),
		udts:     make(map[string]project.UDTConfig),
		enums:    make(map[string]project.EnumConfig),
		typedefs: make(map[string]project.TypedefConfig),
		funcs:    make(map[string]project.FunctionConfig),
		globals:  make(map[string]project.GlobalConfig),
		busy:     make(map[string]bool),
	}
	for _, b := range m.Config.Types.Basic {
		im.basics[b.Name] = b
	}
	for _, u := range m.Config.Types.UDTs {
		im.udts[u.Name] = u
	}
	for _, e := range m.Config.Types.Enums {
		im.enums[e.Name] = e
	}
	for _, td := range m.Config.Types.Typedefs {
		im.typedefs[td.Name] = td
	}
	for _, f := range m.Config.Functions {
		im.funcs[f.Name] = f
	}
	for _, g := range m.Config.Globals {
		im.globals[g.Name] = g
	}
	return im
}

// ImportByName materializes the named declaration into st, if this
// importer has one. Referenced types resolve through the store, which may
// re-enter the importer for further misses.
func (im *ManifestImporter) ImportByName(st *symbols.Store, name string) (bool, error) {
	if im.busy[name] {
		return false, nil
	}
	im.busy[name] = true
	defer delete(im.busy, name)

	if b, ok := im.basics[name]; ok {
		delete(im.basics, name)
		return im.importBasic(st, b)
	}
	if u, ok := im.udts[name]; ok {
		delete(im.udts, name)
		return im.importUDT(st, u)
	}
	if e, ok := im.enums[name]; ok {
		delete(im.enums, name)
		return im.importEnum(st, e)
	}
	if td, ok := im.typedefs[name]; ok {
		delete(im.typedefs, name)
		return im.importTypedef(st, td)
	}
	if f, ok := im.funcs[name]; ok {
		delete(im.funcs, name)
		return im.importFunction(st, f)
	}
	if g, ok := im.globals[name]; ok {
		delete(im.globals, name)
		return im.importGlobal(st, g)
	}
	return false, nil
}

// ImportByOffset materializes the declaration whose code ranges or data
// address cover addr, if one remains unimported.
func (im *ManifestImporter) ImportByOffset(st *symbols.Store, addr uint64) (bool, error) {
	for name, f := range im.funcs {
		for _, r := range f.Ranges {
			if addr >= r.Offset && addr < r.Offset+r.Size {
				return im.ImportByName(st, name)
			}
		}
	}
	for name, g := range im.globals {
		if addr == g.Addr {
			return im.ImportByName(st, name)
		}
	}
	return false, nil
}

func (im *ManifestImporter) importBasic(st *symbols.Store, b project.BasicConfig) (bool, error) {
	kind, ok := project.BasicKindNamed(b.Kind)
	if !ok {
		return false, nil
	}
	_, err := st.NewBasic(b.Name, kind, b.Size)
	return err == nil, err
}

func (im *ManifestImporter) importUDT(st *symbols.Store, u project.UDTConfig) (bool, error) {
	id, err := st.NewUDT(u.Name)
	if err != nil {
		return false, err
	}
	for _, b := range u.Bases {
		base, err := st.ResolveTypeName(b.Type)
		if err != nil {
			return true, err
		}
		if _, err := st.AddBaseClass(id, base, project.DeclOffset(b.Offset)); err != nil {
			return true, err
		}
	}
	for _, f := range u.Fields {
		typ, err := st.ResolveTypeName(f.Type)
		if err != nil {
			return true, err
		}
		if _, err := st.AddField(id, f.Name, typ, project.DeclOffset(f.Offset)); err != nil {
			return true, err
		}
	}
	im.log.Debug().Str("name", u.Name).Msg("imported struct on demand")
	return true, nil
}

func (im *ManifestImporter) importEnum(st *symbols.Store, e project.EnumConfig) (bool, error) {
	under, err := st.ResolveTypeName(e.Underlying)
	if err != nil {
		return false, err
	}
	id, err := st.NewEnum(e.Name, under)
	if err != nil {
		return false, err
	}
	for _, v := range e.Values {
		if _, err := st.AddEnumerant(id, v.Name, v.Value); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (im *ManifestImporter) importTypedef(st *symbols.Store, td project.TypedefConfig) (bool, error) {
	target, err := st.ResolveTypeName(td.Target)
	if err != nil {
		return false, err
	}
	_, err = st.NewTypedef(td.Name, target)
	return err == nil, err
}

func (im *ManifestImporter) importFunction(st *symbols.Store, f project.FunctionConfig) (bool, error) {
	ret := symbols.NoSymbolID
	var err error
	if f.Return != "" {
		if ret, err = st.ResolveTypeName(f.Return); err != nil {
			return false, err
		}
	}
	ranges := make([]symbols.Range, len(f.Ranges))
	for i, r := range f.Ranges {
		ranges[i] = symbols.Range{Offset: r.Offset, Size: r.Size}
	}
	fn, err := st.NewFunction(f.Name, ret, ranges)
	if err != nil {
		return false, err
	}
	for _, p := range f.Params {
		typ, err := st.ResolveTypeName(p.Type)
		if err != nil {
			return true, err
		}
		if _, err := st.AddParameter(fn, p.Name, typ); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (im *ManifestImporter) importGlobal(st *symbols.Store, g project.GlobalConfig) (bool, error) {
	typ, err := st.ResolveTypeName(g.Type)
	if err != nil {
		return false, err
	}
	_, err = st.NewGlobalData(g.Name, typ, g.Addr)
	return err == nil, err
}
