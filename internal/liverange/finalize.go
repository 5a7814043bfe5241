package liverange

import (
	"sort"

	"symforge/internal/symbols"
)

// finalize coalesces per-block spans into function-relative live ranges
// and writes them onto each parameter.
func (b *Builder) finalize(paramIDs []symbols.SymbolID, states map[uint64]*blockState, fnRanges []symbols.Range) error {
	for p, id := range paramIDs {
		var spans []recorded
		for _, st := range states {
			spans = append(spans, st.recorded[p]...)
		}
		merged := coalesce(b, spans)
		ranges := make([]symbols.LiveRange, 0, len(merged))
		for _, m := range merged {
			start, ok1 := funcRelative(fnRanges, m.start)
			end, ok2 := funcRelative(fnRanges, m.end)
			if !ok1 || !ok2 || end <= start {
				b.Log.Warn().
					Uint64("start", m.start).
					Uint64("end", m.end).
					Msg("live range outside function body, dropped")
				continue
			}
			ranges = append(ranges, symbols.LiveRange{Offset: start, Size: end - start, Loc: m.loc})
		}
		if err := b.Store.SetLiveRanges(id, ranges); err != nil {
			return err
		}
	}
	return nil
}

// coalesce resolves the per-block spans into a sorted, disjoint set. It
// sweeps by address: same-location spans that touch merge, and an overlap
// between different locations is a control-flow-dependent split where the
// span ending soonest owns the overlapped stretch and the remainder of
// the other is queued again behind it. Spans can overlap pairwise, e.g.
// two open aliases over a still-live source, so every trim goes back
// through the queue rather than against the last output alone.
func coalesce(b *Builder, spans []recorded) []recorded {
	queue := append([]recorded(nil), spans...)
	sort.Slice(queue, func(i, j int) bool {
		if queue[i].start != queue[j].start {
			return queue[i].start < queue[j].start
		}
		return queue[i].end < queue[j].end
	})
	var out []recorded
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for len(queue) > 0 {
			t := queue[0]
			if s.loc.Equivalent(b.Dir, t.loc) {
				if t.start > s.end {
					break
				}
				queue = queue[1:]
				if t.end > s.end {
					s.end = t.end
				}
				continue
			}
			if t.start >= s.end {
				break
			}
			queue = queue[1:]
			if s.end <= t.end {
				// s ends soonest; t resumes once it is gone.
				t.start = s.end
				if t.end > t.start {
					queue = requeue(queue, t)
				}
				continue
			}
			// t ends soonest: it owns its stretch, and the part of s
			// past it competes again later.
			queue = requeue(queue, t)
			queue = requeue(queue, recorded{start: t.end, end: s.end, loc: s.loc})
			s.end = t.start
			break
		}
		if s.end <= s.start {
			continue
		}
		if len(out) > 0 {
			last := &out[len(out)-1]
			if last.loc.Equivalent(b.Dir, s.loc) && s.start <= last.end {
				if s.end > last.end {
					last.end = s.end
				}
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// requeue inserts a trimmed span back into the queue, keeping it ordered
// by (start, end).
func requeue(queue []recorded, s recorded) []recorded {
	i := sort.Search(len(queue), func(i int) bool {
		if queue[i].start != s.start {
			return queue[i].start > s.start
		}
		return queue[i].end > s.end
	})
	queue = append(queue, recorded{})
	copy(queue[i+1:], queue[i:])
	queue[i] = s
	return queue
}

// funcRelative maps a module-relative address into the function's own
// address space, accumulating across its disjoint body ranges. The
// exclusive end of a range maps as well.
func funcRelative(ranges []symbols.Range, addr uint64) (uint64, bool) {
	var acc uint64
	for _, r := range ranges {
		if addr >= r.Offset && addr <= r.End() {
			return acc + (addr - r.Offset), true
		}
		acc += r.Size
	}
	return 0, false
}
