package interval

import "sort"

type point[ID comparable] struct {
	addr uint64
	ids  []ID
}

// PointMap is the single-address variant of Map for symbols with no size,
// e.g. exported/public names. It supports nearest-symbol-before queries.
type PointMap[ID comparable] struct {
	points []point[ID]
}

// Add records id at addr. Multiple ids may share one address.
func (p *PointMap[ID]) Add(addr uint64, id ID) {
	idx := p.search(addr)
	if idx < len(p.points) && p.points[idx].addr == addr {
		p.points[idx].ids = append(p.points[idx].ids, id)
		return
	}
	p.points = append(p.points, point[ID]{})
	copy(p.points[idx+1:], p.points[idx:])
	p.points[idx] = point[ID]{addr: addr, ids: []ID{id}}
}

// Remove drops id from addr and reports whether anything changed.
func (p *PointMap[ID]) Remove(addr uint64, id ID) bool {
	idx := p.search(addr)
	if idx >= len(p.points) || p.points[idx].addr != addr {
		return false
	}
	if !containsID(p.points[idx].ids, id) {
		return false
	}
	p.points[idx].ids = dropID(p.points[idx].ids, id)
	if len(p.points[idx].ids) == 0 {
		p.points = append(p.points[:idx], p.points[idx+1:]...)
	}
	return true
}

// At returns the ids recorded exactly at addr.
func (p *PointMap[ID]) At(addr uint64) []ID {
	idx := p.search(addr)
	if idx >= len(p.points) || p.points[idx].addr != addr {
		return nil
	}
	return append([]ID(nil), p.points[idx].ids...)
}

// NearestBefore returns the greatest recorded address not exceeding addr
// together with its ids.
func (p *PointMap[ID]) NearestBefore(addr uint64) (uint64, []ID, bool) {
	idx := sort.Search(len(p.points), func(i int) bool {
		return p.points[i].addr > addr
	})
	if idx == 0 {
		return 0, nil, false
	}
	pt := p.points[idx-1]
	return pt.addr, append([]ID(nil), pt.ids...), true
}

func (p *PointMap[ID]) search(addr uint64) int {
	return sort.Search(len(p.points), func(i int) bool {
		return p.points[i].addr >= addr
	})
}
