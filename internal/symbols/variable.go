package symbols

import "symforge/internal/symerr"

// SetLiveRanges replaces a variable's live ranges. Ranges for the same
// variable must never overlap; offsets are function-relative.
func (s *Store) SetLiveRanges(v SymbolID, ranges []LiveRange) (err error) {
	defer symerr.Guard(&err)
	sym, err := s.variable(v)
	if err != nil {
		return err
	}
	if err = checkLiveDisjoint(ranges); err != nil {
		return err
	}
	sym.LiveRanges = append([]LiveRange(nil), ranges...)
	s.invalidate()
	return nil
}

// AddLiveRange appends one live range, rejecting overlap with the
// existing set.
func (s *Store) AddLiveRange(v SymbolID, r LiveRange) (err error) {
	defer symerr.Guard(&err)
	sym, err := s.variable(v)
	if err != nil {
		return err
	}
	next := append(append([]LiveRange(nil), sym.LiveRanges...), r)
	if err = checkLiveDisjoint(next); err != nil {
		return err
	}
	sym.LiveRanges = next
	s.invalidate()
	return nil
}

func (s *Store) variable(v SymbolID) (*Symbol, error) {
	sym, err := s.Get(v)
	if err != nil {
		return nil, err
	}
	if sym.Kind != SymbolParameter && sym.Kind != SymbolLocal {
		return nil, symerr.New(symerr.KindUnexpected, "symbol %d is a %s, expected a variable", v, sym.Kind)
	}
	return sym, nil
}

func checkLiveDisjoint(ranges []LiveRange) error {
	for i := range ranges {
		for j := i + 1; j < len(ranges); j++ {
			a, b := ranges[i], ranges[j]
			if a.Offset < b.End() && b.Offset < a.End() {
				return symerr.New(symerr.KindInvalidArgument,
					"live ranges [%#x,%#x) and [%#x,%#x) overlap for one variable",
					a.Offset, a.End(), b.Offset, b.End())
			}
		}
	}
	return nil
}
