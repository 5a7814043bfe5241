// Package interval provides a half-open address-range multimap with
// automatic cell splitting, used to answer "which symbol owns byte X"
// and "nearest symbol to X" queries.
package interval

import "sort"

type cell[ID comparable] struct {
	start uint64
	end   uint64
	ids   []ID
}

// Map is a sorted, non-overlapping partition of the covered address space.
// Every inserted range [start,end) is reconstructable as the union of the
// partition cells holding its id.
type Map[ID comparable] struct {
	cells []cell[ID]
}

// Cell is a read-only view of one partition cell.
type Cell[ID comparable] struct {
	Start uint64
	End   uint64
	IDs   []ID
}

// Len reports the number of partition cells.
func (m *Map[ID]) Len() int { return len(m.cells) }

// Cells returns a snapshot of the partition in address order.
func (m *Map[ID]) Cells() []Cell[ID] {
	out := make([]Cell[ID], len(m.cells))
	for i, c := range m.cells {
		out[i] = Cell[ID]{Start: c.start, End: c.end, IDs: append([]ID(nil), c.ids...)}
	}
	return out
}

// firstCovering returns the index of the first cell whose end exceeds addr.
func (m *Map[ID]) firstCovering(addr uint64) int {
	return sort.Search(len(m.cells), func(i int) bool {
		return m.cells[i].end > addr
	})
}

// Insert records id as an owner of [start,end). Overlapped cells are split
// into at most three pieces so that the partition invariant holds.
func (m *Map[ID]) Insert(start, end uint64, id ID) {
	if start >= end {
		return
	}
	cur := start
	idx := m.firstCovering(start)
	for cur < end {
		if idx >= len(m.cells) || m.cells[idx].start >= end {
			// No more overlap: one fresh cell covers the rest.
			m.spliceAt(idx, cell[ID]{start: cur, end: end, ids: []ID{id}})
			return
		}
		c := &m.cells[idx]
		if c.start > cur {
			// Gap before the next cell.
			gapEnd := c.start
			if end < gapEnd {
				gapEnd = end
			}
			m.spliceAt(idx, cell[ID]{start: cur, end: gapEnd, ids: []ID{id}})
			idx++
			cur = gapEnd
			continue
		}
		if c.start < cur {
			// Split off the untouched prefix.
			prefix := cell[ID]{start: c.start, end: cur, ids: append([]ID(nil), c.ids...)}
			c.start = cur
			m.spliceAt(idx, prefix)
			idx++
		}
		c = &m.cells[idx]
		if c.end > end {
			// Split off the untouched suffix.
			suffix := cell[ID]{start: end, end: c.end, ids: append([]ID(nil), c.ids...)}
			c.end = end
			m.spliceAt(idx+1, suffix)
		}
		c = &m.cells[idx]
		c.ids = append(c.ids, id)
		cur = c.end
		idx++
	}
}

// Remove drops id from every cell overlapping [start,end), splitting cells
// that extend past the removed range. It reports whether anything changed;
// removing a range that was never inserted is not an error.
func (m *Map[ID]) Remove(start, end uint64, id ID) bool {
	if start >= end {
		return false
	}
	changed := false
	idx := m.firstCovering(start)
	for idx < len(m.cells) && m.cells[idx].start < end {
		c := &m.cells[idx]
		if !containsID(c.ids, id) {
			idx++
			continue
		}
		if c.start < start {
			prefix := cell[ID]{start: c.start, end: start, ids: append([]ID(nil), c.ids...)}
			c.start = start
			m.spliceAt(idx, prefix)
			idx++
			c = &m.cells[idx]
		}
		if c.end > end {
			suffix := cell[ID]{start: end, end: c.end, ids: append([]ID(nil), c.ids...)}
			c.end = end
			m.spliceAt(idx+1, suffix)
			c = &m.cells[idx]
		}
		c.ids = dropID(c.ids, id)
		changed = true
		if len(c.ids) == 0 {
			m.cells = append(m.cells[:idx], m.cells[idx+1:]...)
			continue
		}
		idx++
	}
	return changed
}

// Query returns the ids owning addr, in insertion order.
func (m *Map[ID]) Query(addr uint64) []ID {
	idx := m.firstCovering(addr)
	if idx >= len(m.cells) || m.cells[idx].start > addr {
		return nil
	}
	return append([]ID(nil), m.cells[idx].ids...)
}

func (m *Map[ID]) spliceAt(idx int, c cell[ID]) {
	m.cells = append(m.cells, cell[ID]{})
	copy(m.cells[idx+1:], m.cells[idx:])
	m.cells[idx] = c
}

func containsID[ID comparable](ids []ID, id ID) bool {
	for _, have := range ids {
		if have == id {
			return true
		}
	}
	return false
}

func dropID[ID comparable](ids []ID, id ID) []ID {
	for i, have := range ids {
		if have == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
