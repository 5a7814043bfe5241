package layout

import (
	"fortio.org/safecast"

	"symforge/internal/symbols"
	"symforge/internal/symerr"
)

// layoutUDT lays the type out in two passes over the children in
// declaration order: base classes first, then fields, regardless of how
// the declarations interleave. Explicit offsets are honored
// unconditionally, overlap included; automatic members advance a cursor
// rounded up to the member type's alignment. The final size is the cursor
// rounded up to the maximum alignment seen.
func (e *Engine) layoutUDT(st *symbols.Store, udt *symbols.Symbol) {
	cursor := 0
	maxAlign := 1
	place := func(member *symbols.Symbol) {
		mt := e.typeOf(st, member.Type)
		align := mt.Align
		if align <= 0 {
			align = 1
		}
		maxAlign = maxInt(maxAlign, align)
		if member.Auto() {
			cursor = roundUp(cursor, align)
			member.Offset = cursor
			cursor += mt.Size
			return
		}
		// Explicit placement is not validated; it may overlap another
		// member. The cursor still has to cover it.
		cursor = maxInt(cursor, member.DeclOffset+mt.Size)
	}
	for _, pass := range [...]symbols.SymbolKind{symbols.SymbolBaseClass, symbols.SymbolField} {
		for _, child := range udt.Children {
			member, err := st.Get(child)
			if err != nil || member.Kind != pass {
				continue
			}
			place(member)
		}
	}
	udt.Size = roundUp(cursor, maxAlign)
	udt.Align = maxAlign
	udt.LaidOut = true
}

// layoutEnum derives the packed representation from the underlying
// ordinal intrinsic and assigns enumerant values: an enumerant with no
// explicit value gets previous+1 starting from the representation's zero;
// an explicit value resets the running counter. Boolean-packed enums only
// ever auto-increment false to true once.
func (e *Engine) layoutEnum(st *symbols.Store, enum *symbols.Symbol) {
	base := e.typeOf(st, enum.Underlying)
	if base.Kind != symbols.SymbolBasic || !base.Basic.IsOrdinal() {
		panic(symerr.New(symerr.KindInvalidArgument,
			"enum underlying type %q is not an ordinal intrinsic", base.Name))
	}
	enum.Size = base.Size
	enum.Align = base.Align

	boolean := base.Basic == symbols.BasicBool
	var next int64
	for _, child := range enum.Children {
		en, err := st.Get(child)
		if err != nil || en.Kind != symbols.SymbolEnumerant {
			continue
		}
		if en.HasValue {
			next = en.Value
		} else {
			en.Value = next
		}
		if boolean && next >= 1 {
			next = 1
			continue
		}
		next = truncate(next+1, base.Size, isSignedOrdinal(base.Basic))
	}
	enum.LaidOut = true
}

func (e *Engine) layoutArray(st *symbols.Store, arr *symbols.Symbol) {
	elem := e.typeOf(st, arr.Elem)
	align := elem.Align
	if align <= 0 {
		align = 1
	}
	stride := roundUp(elem.Size, align)
	count, err := safecast.Conv[int](arr.Count)
	if err != nil {
		panic(symerr.Wrap(symerr.KindInvalidArgument, err, "array dimension overflow"))
	}
	arr.ElemSize = stride
	arr.Size = stride * count
	arr.Align = align
	arr.LaidOut = true
}

func isSignedOrdinal(b symbols.BasicKind) bool {
	switch b {
	case symbols.BasicChar, symbols.BasicShort, symbols.BasicInt,
		symbols.BasicLong, symbols.BasicLongLong:
		return true
	}
	return false
}

// truncate wraps v into the packed representation of the given byte
// width, sign-extending for signed kinds.
func truncate(v int64, width int, signed bool) int64 {
	if width <= 0 || width >= 8 {
		return v
	}
	bits := uint(width) * 8
	mask := int64(1)<<bits - 1
	v &= mask
	if signed && v>>(bits-1) != 0 {
		v -= mask + 1
	}
	return v
}
