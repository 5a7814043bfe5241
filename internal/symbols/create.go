package symbols

import (
	"fmt"

	"symforge/internal/symerr"
)

// NewBasic registers an intrinsic type with a fixed byte size.
func (s *Store) NewBasic(name string, kind BasicKind, size int) (SymbolID, error) {
	align := size
	if align <= 0 {
		align = 1
	}
	return s.Add(&Symbol{
		Name:    name,
		Kind:    SymbolBasic,
		Basic:   kind,
		Size:    size,
		Align:   align,
		LaidOut: true,
	})
}

// NewUDT registers an empty user-defined type. It starts unlaid-out; the
// layout engine lays it out as members arrive.
func (s *Store) NewUDT(name string) (SymbolID, error) {
	return s.Add(&Symbol{Name: name, Kind: SymbolUDT, Align: 1})
}

// AddField appends a field to a UDT. declOffset places the field
// unconditionally, even overlapping another member; AutoOffset defers to
// the layout engine. The field depends on its type's layout and the UDT
// depends on the field, so a leaf-type size change propagates upward.
func (s *Store) AddField(udt SymbolID, name string, typ SymbolID, declOffset int) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	if _, err = s.Kind(udt, SymbolUDT); err != nil {
		return NoSymbolID, err
	}
	if _, err = s.Get(typ); err != nil {
		return NoSymbolID, err
	}
	id, err = s.Add(&Symbol{
		Name:       name,
		Kind:       SymbolField,
		Parent:     udt,
		Type:       typ,
		DeclOffset: declOffset,
	})
	if err != nil {
		return NoSymbolID, err
	}
	s.AddDependentNotify(typ, id)
	s.AddDependentNotify(id, udt)
	s.markUnlaid(udt)
	s.NotifyDependentChange(udt)
	return id, nil
}

// AddBaseClass appends a base class to a UDT. Base classes are laid out
// before fields regardless of declaration interleaving.
func (s *Store) AddBaseClass(udt, base SymbolID, declOffset int) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	if _, err = s.Kind(udt, SymbolUDT); err != nil {
		return NoSymbolID, err
	}
	baseSym, err := s.Get(base)
	if err != nil {
		return NoSymbolID, err
	}
	id, err = s.Add(&Symbol{
		Name:       baseSym.Name,
		Kind:       SymbolBaseClass,
		Parent:     udt,
		Type:       base,
		DeclOffset: declOffset,
	})
	if err != nil {
		return NoSymbolID, err
	}
	s.AddDependentNotify(base, id)
	s.AddDependentNotify(id, udt)
	s.markUnlaid(udt)
	s.NotifyDependentChange(udt)
	return id, nil
}

// SetMemberType swaps a field's or base class's type, rebalancing the
// dependency edges before propagating.
func (s *Store) SetMemberType(member, typ SymbolID) (err error) {
	defer symerr.Guard(&err)
	sym, err := s.Get(member)
	if err != nil {
		return err
	}
	if sym.Kind != SymbolField && sym.Kind != SymbolBaseClass {
		return symerr.New(symerr.KindUnexpected, "symbol %d is a %s, expected a member", member, sym.Kind)
	}
	if _, err = s.Get(typ); err != nil {
		return err
	}
	s.RemoveDependentNotify(sym.Type, member)
	sym.Type = typ
	s.AddDependentNotify(typ, member)
	if sym.Parent.IsValid() {
		s.markUnlaid(sym.Parent)
	}
	s.NotifyDependentChange(member)
	s.invalidate()
	return nil
}

// NewPointer registers a pointer type over pointee. Size and alignment
// come from the target pointer width via the layout hook.
func (s *Store) NewPointer(pointee SymbolID, flavor PointerFlavor) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	pt, err := s.Get(pointee)
	if err != nil {
		return NoSymbolID, err
	}
	id, err = s.Add(&Symbol{
		Name:    pt.Name + flavor.Suffix(),
		Kind:    SymbolPointer,
		Pointee: pointee,
		Flavor:  flavor,
	})
	if err != nil {
		return NoSymbolID, err
	}
	s.NotifyDependentChange(id)
	return id, nil
}

// NewArray registers an array type. The array depends on its element type
// so that resizing the element recomputes the array.
func (s *Store) NewArray(elem SymbolID, count uint32) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	es, err := s.Get(elem)
	if err != nil {
		return NoSymbolID, err
	}
	id, err = s.Add(&Symbol{
		Name:  fmt.Sprintf("%s[%d]", es.Name, count),
		Kind:  SymbolArray,
		Elem:  elem,
		Count: count,
	})
	if err != nil {
		return NoSymbolID, err
	}
	s.AddDependentNotify(elem, id)
	s.NotifyDependentChange(id)
	return id, nil
}

// NewTypedef registers a typedef mirroring target's layout.
func (s *Store) NewTypedef(name string, target SymbolID) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	if _, err = s.Get(target); err != nil {
		return NoSymbolID, err
	}
	id, err = s.Add(&Symbol{
		Name:   name,
		Kind:   SymbolTypedef,
		Target: target,
	})
	if err != nil {
		return NoSymbolID, err
	}
	s.AddDependentNotify(target, id)
	s.NotifyDependentChange(id)
	return id, nil
}

// NewEnum registers an enum. The underlying type must be an ordinal
// intrinsic; its byte width selects the packed numeric representation.
func (s *Store) NewEnum(name string, underlying SymbolID) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	base, err := s.Kind(underlying, SymbolBasic)
	if err != nil {
		return NoSymbolID, err
	}
	if !base.Basic.IsOrdinal() {
		return NoSymbolID, symerr.New(symerr.KindInvalidArgument,
			"enum underlying type %q is not an ordinal intrinsic", base.Name)
	}
	id, err = s.Add(&Symbol{
		Name:       name,
		Kind:       SymbolEnum,
		Underlying: underlying,
	})
	if err != nil {
		return NoSymbolID, err
	}
	s.AddDependentNotify(underlying, id)
	s.NotifyDependentChange(id)
	return id, nil
}

// AddEnumerant appends an enumerant. A nil explicit value auto-increments
// from the previous enumerant (the representation's zero for the first);
// an explicit value resets the running counter.
func (s *Store) AddEnumerant(enum SymbolID, name string, explicit *int64) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	if _, err = s.Kind(enum, SymbolEnum); err != nil {
		return NoSymbolID, err
	}
	sym := &Symbol{
		Name:   name,
		Kind:   SymbolEnumerant,
		Parent: enum,
	}
	if explicit != nil {
		sym.Value = *explicit
		sym.HasValue = true
	}
	id, err = s.Add(sym)
	if err != nil {
		return NoSymbolID, err
	}
	s.AddDependentNotify(id, enum)
	s.NotifyDependentChange(enum)
	return id, nil
}

// NewGlobalData registers a global data symbol at a module-relative
// offset.
func (s *Store) NewGlobalData(name string, typ SymbolID, addr uint64) (id SymbolID, err error) {
	defer symerr.Guard(&err)
	if _, err = s.Get(typ); err != nil {
		return NoSymbolID, err
	}
	return s.Add(&Symbol{
		Name: name,
		Kind: SymbolGlobalData,
		Type: typ,
		Addr: addr,
	})
}

// NewPublic registers a sizeless public name at a module-relative offset.
func (s *Store) NewPublic(name string, addr uint64) (SymbolID, error) {
	return s.Add(&Symbol{
		Name: name,
		Kind: SymbolPublic,
		Addr: addr,
	})
}

// markUnlaid re-enters the unlaid-out state after a member-list mutation.
func (s *Store) markUnlaid(udt SymbolID) {
	if sym := s.syms.Get(udt); sym != nil && sym.Kind == SymbolUDT {
		sym.LaidOut = false
	}
}
