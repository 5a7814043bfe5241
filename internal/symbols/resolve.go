package symbols

import (
	"strconv"
	"strings"

	"symforge/internal/symerr"
)

// ResolveTypeName resolves a textual type name to an existing named type,
// or synthesizes a pointer/array type by recognizing trailing `*`, `&`,
// `&&`, `^`, or `[N]` syntax and recursively resolving the base name.
// This is how "int*" or "Foo[4]" can be used without pre-declaring the
// derived type. Demand-creation of pointers and arrays is individually
// toggleable through Options.
func (s *Store) ResolveTypeName(name string) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	name = strings.TrimSpace(name)
	if name == "" {
		return NoSymbolID, symerr.New(symerr.KindInvalidArgument, "empty type name")
	}

	// An existing type wins over demand-creation, so previously
	// synthesized derived types resolve without re-creating.
	if existing, ok := s.lookupName(name); ok {
		if sym := s.syms.Get(existing); sym != nil && sym.Kind.IsType() {
			return existing, nil
		}
	}

	if strings.HasSuffix(name, "]") {
		return s.resolveArrayName(name)
	}
	for _, suffix := range [...]struct {
		text   string
		flavor PointerFlavor
	}{
		{"&&", PtrRValueReference},
		{"&", PtrReference},
		{"*", PtrRaw},
		{"^", PtrRaw},
	} {
		if strings.HasSuffix(name, suffix.text) {
			if !s.opts.CreatePointers {
				return NoSymbolID, symerr.New(symerr.KindUnsupported,
					"demand-creation of pointer types is disabled (%q)", name)
			}
			base, err := s.ResolveTypeName(strings.TrimSuffix(name, suffix.text))
			if err != nil {
				return NoSymbolID, err
			}
			return s.NewPointer(base, suffix.flavor)
		}
	}

	id, lerr := s.FindByName(name)
	if lerr != nil {
		return NoSymbolID, lerr
	}
	sym := s.MustGet(id)
	if !sym.Kind.IsType() {
		return NoSymbolID, symerr.New(symerr.KindNotFound, "%q names a %s, not a type", name, sym.Kind)
	}
	return id, nil
}

func (s *Store) resolveArrayName(name string) (SymbolID, error) {
	open := strings.LastIndex(name, "[")
	if open <= 0 {
		return NoSymbolID, symerr.New(symerr.KindInvalidArgument, "malformed array type name %q", name)
	}
	dim := name[open+1 : len(name)-1]
	count, perr := strconv.ParseUint(dim, 10, 32)
	if perr != nil {
		return NoSymbolID, symerr.New(symerr.KindInvalidArgument, "malformed array dimension %q in %q", dim, name)
	}
	if !s.opts.CreateArrays {
		return NoSymbolID, symerr.New(symerr.KindUnsupported,
			"demand-creation of array types is disabled (%q)", name)
	}
	base, err := s.ResolveTypeName(name[:open])
	if err != nil {
		return NoSymbolID, err
	}
	return s.NewArray(base, uint32(count))
}
