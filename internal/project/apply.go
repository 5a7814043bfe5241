package project

import (
	"github.com/rs/zerolog"

	"symforge/internal/layout"
	"symforge/internal/symbols"
	"symforge/internal/symerr"
)

var basicKinds = map[string]symbols.BasicKind{
	"void":      symbols.BasicVoid,
	"bool":      symbols.BasicBool,
	"char":      symbols.BasicChar,
	"uchar":     symbols.BasicUChar,
	"wchar":     symbols.BasicWChar,
	"short":     symbols.BasicShort,
	"ushort":    symbols.BasicUShort,
	"int":       symbols.BasicInt,
	"uint":      symbols.BasicUInt,
	"long":      symbols.BasicLong,
	"ulong":     symbols.BasicULong,
	"longlong":  symbols.BasicLongLong,
	"ulonglong": symbols.BasicULongLong,
	"float":     symbols.BasicFloat,
	"double":    symbols.BasicDouble,
}

// BasicKindNamed maps a manifest kind string to the intrinsic kind.
func BasicKindNamed(name string) (symbols.BasicKind, bool) {
	kind, ok := basicKinds[name]
	return kind, ok
}

// DeclOffset converts an optional manifest offset to the store's
// declared-offset convention.
func DeclOffset(explicit *int64) int {
	return declOffset(explicit)
}

// TargetFor maps a manifest target triple to a layout target.
func TargetFor(triple string) (layout.Target, error) {
	switch triple {
	case "x86_64-pc-windows-msvc":
		return layout.AMD64Windows(), nil
	case "x86_64-linux-gnu":
		return layout.AMD64Linux(), nil
	}
	return layout.Target{}, symerr.New(symerr.KindUnsupported, "no layout rules for target %q", triple)
}

// Build turns a manifest into a populated store with an attached layout
// engine. Types are declared shell-first so members and signatures can
// reference types in any order, including derived spellings like "Foo*"
// and "int[8]".
func (m *Manifest) Build(log zerolog.Logger) (*symbols.Store, *layout.Engine, error) {
	opts := symbols.DefaultOptions()
	if m.Config.Options.CreatePointers != nil {
		opts.CreatePointers = *m.Config.Options.CreatePointers
	}
	if m.Config.Options.CreateArrays != nil {
		opts.CreateArrays = *m.Config.Options.CreateArrays
	}
	target, err := TargetFor(m.Config.Module.Target)
	if err != nil {
		return nil, nil, err
	}
	st := symbols.NewStore(symbols.Hints{}, opts, log)
	eng := layout.New(target)
	eng.Attach(st)

	for _, b := range m.Config.Types.Basic {
		kind, ok := basicKinds[b.Kind]
		if !ok {
			return nil, nil, symerr.New(symerr.KindInvalidArgument, "basic type %q has unknown kind %q", b.Name, b.Kind)
		}
		if _, err := st.NewBasic(b.Name, kind, b.Size); err != nil {
			return nil, nil, err
		}
	}
	udts := make([]symbols.SymbolID, len(m.Config.Types.UDTs))
	for i, u := range m.Config.Types.UDTs {
		id, err := st.NewUDT(u.Name)
		if err != nil {
			return nil, nil, err
		}
		udts[i] = id
	}
	for _, e := range m.Config.Types.Enums {
		under, err := st.ResolveTypeName(e.Underlying)
		if err != nil {
			return nil, nil, err
		}
		id, err := st.NewEnum(e.Name, under)
		if err != nil {
			return nil, nil, err
		}
		for _, v := range e.Values {
			if _, err := st.AddEnumerant(id, v.Name, v.Value); err != nil {
				return nil, nil, err
			}
		}
	}
	for _, td := range m.Config.Types.Typedefs {
		target, err := st.ResolveTypeName(td.Target)
		if err != nil {
			return nil, nil, err
		}
		if _, err := st.NewTypedef(td.Name, target); err != nil {
			return nil, nil, err
		}
	}
	for i, u := range m.Config.Types.UDTs {
		for _, b := range u.Bases {
			base, err := st.ResolveTypeName(b.Type)
			if err != nil {
				return nil, nil, err
			}
			if _, err := st.AddBaseClass(udts[i], base, declOffset(b.Offset)); err != nil {
				return nil, nil, err
			}
		}
		for _, f := range u.Fields {
			typ, err := st.ResolveTypeName(f.Type)
			if err != nil {
				return nil, nil, err
			}
			if _, err := st.AddField(udts[i], f.Name, typ, declOffset(f.Offset)); err != nil {
				return nil, nil, err
			}
		}
	}
	for _, fc := range m.Config.Functions {
		ret := symbols.NoSymbolID
		if fc.Return != "" {
			if ret, err = st.ResolveTypeName(fc.Return); err != nil {
				return nil, nil, err
			}
		}
		ranges := make([]symbols.Range, len(fc.Ranges))
		for i, r := range fc.Ranges {
			ranges[i] = symbols.Range{Offset: r.Offset, Size: r.Size}
		}
		fn, err := st.NewFunction(fc.Name, ret, ranges)
		if err != nil {
			return nil, nil, err
		}
		for _, p := range fc.Params {
			typ, err := st.ResolveTypeName(p.Type)
			if err != nil {
				return nil, nil, err
			}
			if _, err := st.AddParameter(fn, p.Name, typ); err != nil {
				return nil, nil, err
			}
		}
		for _, l := range fc.Locals {
			typ, err := st.ResolveTypeName(l.Type)
			if err != nil {
				return nil, nil, err
			}
			if _, err := st.AddLocal(fn, l.Name, typ); err != nil {
				return nil, nil, err
			}
		}
	}
	for _, g := range m.Config.Globals {
		typ, err := st.ResolveTypeName(g.Type)
		if err != nil {
			return nil, nil, err
		}
		if _, err := st.NewGlobalData(g.Name, typ, g.Addr); err != nil {
			return nil, nil, err
		}
	}
	for _, p := range m.Config.Publics {
		if _, err := st.NewPublic(p.Name, p.Addr); err != nil {
			return nil, nil, err
		}
	}

	// Force a layout on every type so sizes are final before anything
	// downstream reads them.
	var layoutErr error
	st.Each(func(id symbols.SymbolID, sym *symbols.Symbol) bool {
		if !sym.Kind.IsType() || sym.Kind == symbols.SymbolFunctionType {
			return true
		}
		if _, err := eng.Layout(st, id); err != nil {
			layoutErr = err
			return false
		}
		return true
	})
	if layoutErr != nil {
		return nil, nil, layoutErr
	}
	return st, eng, nil
}

func declOffset(explicit *int64) int {
	if explicit == nil {
		return symbols.AutoOffset
	}
	return int(*explicit)
}
