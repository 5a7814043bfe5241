package symbols

import (
	"symforge/internal/callconv"
)

// SymbolKind classifies the semantic meaning of a symbol.
type SymbolKind uint8

const (
	SymbolInvalid SymbolKind = iota
	SymbolBasic
	SymbolUDT
	SymbolPointer
	SymbolArray
	SymbolTypedef
	SymbolEnum
	SymbolEnumerant
	SymbolField
	SymbolBaseClass
	SymbolGlobalData
	SymbolFunction
	SymbolFunctionType
	SymbolParameter
	SymbolLocal
	SymbolPublic
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolBasic:
		return "basic"
	case SymbolUDT:
		return "udt"
	case SymbolPointer:
		return "pointer"
	case SymbolArray:
		return "array"
	case SymbolTypedef:
		return "typedef"
	case SymbolEnum:
		return "enum"
	case SymbolEnumerant:
		return "enumerant"
	case SymbolField:
		return "field"
	case SymbolBaseClass:
		return "base class"
	case SymbolGlobalData:
		return "data"
	case SymbolFunction:
		return "function"
	case SymbolFunctionType:
		return "function type"
	case SymbolParameter:
		return "parameter"
	case SymbolLocal:
		return "local"
	case SymbolPublic:
		return "public"
	default:
		return "invalid"
	}
}

// IsType reports whether symbols of this kind carry a layout.
func (k SymbolKind) IsType() bool {
	switch k {
	case SymbolBasic, SymbolUDT, SymbolPointer, SymbolArray, SymbolTypedef, SymbolEnum, SymbolFunctionType:
		return true
	}
	return false
}

// IsGlobal reports whether symbols of this kind are indexed by qualified
// name in the global index.
func (k SymbolKind) IsGlobal() bool {
	switch k {
	case SymbolBasic, SymbolUDT, SymbolPointer, SymbolArray, SymbolTypedef, SymbolEnum,
		SymbolGlobalData, SymbolFunction, SymbolPublic:
		return true
	}
	return false
}

// BasicKind identifies an intrinsic type.
type BasicKind uint8

const (
	BasicVoid BasicKind = iota
	BasicBool
	BasicChar
	BasicUChar
	BasicWChar
	BasicShort
	BasicUShort
	BasicInt
	BasicUInt
	BasicLong
	BasicULong
	BasicLongLong
	BasicULongLong
	BasicFloat
	BasicDouble
)

// IsOrdinal reports whether the intrinsic can back an enum.
func (b BasicKind) IsOrdinal() bool {
	switch b {
	case BasicBool, BasicChar, BasicUChar, BasicWChar, BasicShort, BasicUShort,
		BasicInt, BasicUInt, BasicLong, BasicULong, BasicLongLong, BasicULongLong:
		return true
	}
	return false
}

// IsFloating reports whether the intrinsic prefers the floating parameter
// register sequence.
func (b BasicKind) IsFloating() bool {
	return b == BasicFloat || b == BasicDouble
}

// PointerFlavor distinguishes raw pointers from references.
type PointerFlavor uint8

const (
	PtrRaw PointerFlavor = iota
	PtrReference
	PtrRValueReference
)

// Suffix returns the type-name suffix that demand-creates this flavor.
func (f PointerFlavor) Suffix() string {
	switch f {
	case PtrReference:
		return "&"
	case PtrRValueReference:
		return "&&"
	default:
		return "*"
	}
}

// Range is one disjoint [Offset, Offset+Size) code span of a function,
// module-relative. The first range is the entry range.
type Range struct {
	Offset uint64
	Size   uint64
}

// End returns the exclusive end offset.
func (r Range) End() uint64 { return r.Offset + r.Size }

// LiveRange records that a variable occupies Loc over the function-relative
// code span [Offset, Offset+Size).
type LiveRange struct {
	Offset uint64
	Size   uint64
	Loc    callconv.Location
}

// End returns the exclusive end offset.
func (r LiveRange) End() uint64 { return r.Offset + r.Size }

// Symbol describes one entity in the store. Kind selects which payload
// fields are meaningful; everything cross-symbol is a SymbolID, never a
// pointer, so deletion can only produce zombies, not dangling references.
type Symbol struct {
	Name      string
	Qualified string
	Kind      SymbolKind
	Parent    SymbolID
	Children  []SymbolID // declaration order unless explicitly reordered

	// Layout, valid until the next dependency notification.
	Size    int
	Align   int
	LaidOut bool

	Basic      BasicKind     // SymbolBasic
	Pointee    SymbolID      // SymbolPointer
	Flavor     PointerFlavor // SymbolPointer
	Elem       SymbolID      // SymbolArray
	Count      uint32        // SymbolArray
	ElemSize   int           // SymbolArray, cached element stride
	Target     SymbolID      // SymbolTypedef
	Underlying SymbolID      // SymbolEnum, must resolve to an ordinal basic

	// Positional member (field/base class), enumerant, data, variable.
	Type       SymbolID
	DeclOffset int  // explicit member offset, or AutoOffset
	Offset     int  // computed offset; meaningful when DeclOffset == AutoOffset
	Value      int64 // enumerant value
	HasValue   bool  // enumerant value was explicit

	// Function.
	Ranges     []Range
	ReturnType SymbolID
	fnType     SymbolID // memoized structural function type

	// Function type.
	ParamTypes []SymbolID

	// Variable.
	LiveRanges []LiveRange

	// Global data / public.
	Addr uint64
}

// Auto reports whether a positional member participates in automatic
// layout.
func (s *Symbol) Auto() bool { return s.DeclOffset == AutoOffset }

// MemberOffset returns the effective offset of a positional member.
func (s *Symbol) MemberOffset() int {
	if s.Auto() {
		return s.Offset
	}
	return s.DeclOffset
}
