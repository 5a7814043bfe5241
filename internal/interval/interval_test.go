package interval

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInsertDisjoint(t *testing.T) {
	var m Map[uint32]
	m.Insert(0x10, 0x20, 1)
	m.Insert(0x30, 0x40, 2)

	require.Equal(t, []uint32{1}, m.Query(0x10))
	require.Equal(t, []uint32{1}, m.Query(0x1f))
	require.Nil(t, m.Query(0x20))
	require.Nil(t, m.Query(0x2f))
	require.Equal(t, []uint32{2}, m.Query(0x30))
	require.Nil(t, m.Query(0x40))
}

func TestInsertOverlapSplits(t *testing.T) {
	var m Map[uint32]
	m.Insert(0x00, 0x100, 1)
	m.Insert(0x40, 0x80, 2)

	require.Equal(t, []uint32{1}, m.Query(0x3f))
	require.ElementsMatch(t, []uint32{1, 2}, m.Query(0x40))
	require.ElementsMatch(t, []uint32{1, 2}, m.Query(0x7f))
	require.Equal(t, []uint32{1}, m.Query(0x80))

	cells := m.Cells()
	require.Len(t, cells, 3)
	for i := 1; i < len(cells); i++ {
		require.LessOrEqual(t, cells[i-1].End, cells[i].Start, "cells must stay sorted and disjoint")
	}
}

func TestInsertSpansGapAndCells(t *testing.T) {
	var m Map[uint32]
	m.Insert(0x10, 0x20, 1)
	m.Insert(0x30, 0x40, 2)
	// Covers the tail of the first cell, the gap, and the head of the second.
	m.Insert(0x18, 0x38, 3)

	require.Equal(t, []uint32{1}, m.Query(0x17))
	require.ElementsMatch(t, []uint32{1, 3}, m.Query(0x18))
	require.Equal(t, []uint32{3}, m.Query(0x28))
	require.ElementsMatch(t, []uint32{2, 3}, m.Query(0x30))
	require.Equal(t, []uint32{2}, m.Query(0x38))
}

func TestRemoveSplitsAroundRange(t *testing.T) {
	var m Map[uint32]
	m.Insert(0x00, 0x100, 7)

	require.True(t, m.Remove(0x40, 0x80, 7))
	require.Equal(t, []uint32{7}, m.Query(0x3f))
	require.Nil(t, m.Query(0x40))
	require.Nil(t, m.Query(0x7f))
	require.Equal(t, []uint32{7}, m.Query(0x80))
}

func TestRemoveAbsentIsNotAnError(t *testing.T) {
	var m Map[uint32]
	m.Insert(0x10, 0x20, 1)

	require.False(t, m.Remove(0x10, 0x20, 2))
	require.False(t, m.Remove(0x200, 0x300, 1))
	require.Equal(t, []uint32{1}, m.Query(0x10))
}

// TestRoundTrip drives a random insert/remove sequence and checks Query
// against a brute-force model at every step. Remove is subtractive, so
// the model is a per-address owner multiset: removing a range strips one
// occurrence of the id from every covered address that still has one,
// whether or not that exact range was ever inserted.
func TestRoundTrip(t *testing.T) {
	type rng struct {
		start, end uint64
		id         uint32
	}
	const span = 300
	rnd := rand.New(rand.NewSource(42))
	var m Map[uint32]
	model := make([]map[uint32]int, span)
	for i := range model {
		model[i] = map[uint32]int{}
	}
	var inserted []rng

	randRange := func() rng {
		start := uint64(rnd.Intn(240))
		return rng{start: start, end: start + 1 + uint64(rnd.Intn(40)), id: uint32(1 + rnd.Intn(6))}
	}

	insertModel := func(r rng) {
		for a := r.start; a < r.end; a++ {
			model[a][r.id]++
		}
	}
	removeModel := func(r rng) bool {
		changed := false
		for a := r.start; a < r.end; a++ {
			if model[a][r.id] > 0 {
				model[a][r.id]--
				if model[a][r.id] == 0 {
					delete(model[a], r.id)
				}
				changed = true
			}
		}
		return changed
	}

	check := func() {
		for addr := uint64(0); addr < span; addr++ {
			got := map[uint32]int{}
			for _, id := range m.Query(addr) {
				got[id]++
			}
			require.Equal(t, model[addr], got, "addr %#x", addr)
		}
	}

	for step := 0; step < 200; step++ {
		r := randRange()
		if rnd.Intn(3) != 0 || len(inserted) == 0 {
			m.Insert(r.start, r.end, r.id)
			insertModel(r)
			inserted = append(inserted, r)
		} else {
			// Remove a previously inserted range half the time, a random
			// (likely absent or partially covered) one otherwise.
			if rnd.Intn(2) == 0 {
				i := rnd.Intn(len(inserted))
				r = inserted[i]
				inserted = append(inserted[:i], inserted[i+1:]...)
			}
			require.Equal(t, removeModel(r), m.Remove(r.start, r.end, r.id), "remove [%#x,%#x) id %d", r.start, r.end, r.id)
		}
		if step%20 == 0 {
			check()
		}
	}
	check()
}

func TestPointMapNearestBefore(t *testing.T) {
	var p PointMap[uint32]
	p.Add(0x100, 1)
	p.Add(0x200, 2)
	p.Add(0x200, 3)

	addr, ids, ok := p.NearestBefore(0x1ff)
	require.True(t, ok)
	require.Equal(t, uint64(0x100), addr)
	require.Equal(t, []uint32{1}, ids)

	addr, ids, ok = p.NearestBefore(0x200)
	require.True(t, ok)
	require.Equal(t, uint64(0x200), addr)
	require.ElementsMatch(t, []uint32{2, 3}, ids)

	_, _, ok = p.NearestBefore(0xff)
	require.False(t, ok)
}

func TestPointMapRemove(t *testing.T) {
	var p PointMap[uint32]
	p.Add(0x80, 9)

	require.False(t, p.Remove(0x80, 1))
	require.True(t, p.Remove(0x80, 9))
	require.False(t, p.Remove(0x80, 9))
	require.Nil(t, p.At(0x80))
}
