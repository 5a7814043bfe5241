package symbols

// SymbolID identifies a symbol inside the store arena. Ids are dense,
// monotonically increasing, and never reused: deleting a symbol leaves its
// slot dead, so a stale id resolves to "absent" instead of aliasing a
// later symbol. Such stale ids are the zombie references of the data model.
type SymbolID uint32

const (
	// NoSymbolID marks the absence of a symbol reference.
	NoSymbolID SymbolID = 0
)

// IsValid reports whether the symbol ID refers to an allocated symbol.
func (id SymbolID) IsValid() bool { return id != NoSymbolID }

// AutoOffset is the declared-offset sentinel for members whose offset is
// computed by the layout engine rather than supplied explicitly.
const AutoOffset = -1
