// Package liverange computes, per parameter, the maximal set of disjoint
// code ranges and the ABI location the parameter occupies in each. It is
// a forward dataflow analysis iterated to a fixed point over the
// function's basic-block graph; all ABI knowledge is delegated to the
// calling convention, keeping the analysis architecture-agnostic.
package liverange

import (
	"github.com/rs/zerolog"

	"symforge/internal/arch"
	"symforge/internal/callconv"
	"symforge/internal/disasm"
	"symforge/internal/symbols"
	"symforge/internal/symerr"
)

// Builder wires the store to the external disassembler and the calling
// convention.
type Builder struct {
	Store  *symbols.Store
	Conv   callconv.Convention
	Disasm disasm.Disassembler
	Dir    arch.Directory
	Log    zerolog.Logger
}

// pendingRange is a zero-length range opened at a block's start. The
// traversal count records how many predecessor merges delivered an
// equivalent location; an equivalent re-merge bumps it without
// introducing new information, which is what lets the worklist drain.
type pendingRange struct {
	loc   callconv.Location
	count int
}

// active is a range being extended while walking a block body.
type active struct {
	loc   callconv.Location
	start uint64
	end   uint64
}

// recorded is a completed span within one block walk.
type recorded struct {
	start uint64
	end   uint64
	loc   callconv.Location
}

type blockState struct {
	walked   bool
	pending  [][]pendingRange      // per parameter
	endLive  [][]callconv.Location // per parameter, at block end
	recorded [][]recorded          // per parameter, replaced on rewalk
}

type workItem struct {
	block   uint64
	pred    uint64
	hasPred bool
}

// BuildFunction runs the analysis for one function and writes the
// coalesced live ranges back onto each parameter through the store.
func (b *Builder) BuildFunction(fn symbols.SymbolID) (err error) {
	defer symerr.Guard(&err)
	fnSym, err := b.Store.Kind(fn, symbols.SymbolFunction)
	if err != nil {
		return err
	}
	params, paramIDs, err := b.Store.ABIParams(fn)
	if err != nil {
		return err
	}
	if len(params) == 0 {
		return nil
	}
	entryLocs, err := b.Conv.PlaceParameters(params)
	if err != nil {
		return err
	}
	entry := fnSym.Ranges[0].Offset
	fnRanges := append([]symbols.Range(nil), fnSym.Ranges...)

	blocks, err := b.Disasm.DisassembleFunction(entry)
	if err != nil {
		return err
	}
	byStart := make(map[uint64]*disasm.Block, len(blocks))
	for i := range blocks {
		byStart[blocks[i].Start] = &blocks[i]
	}
	states := make(map[uint64]*blockState, len(blocks))
	state := func(addr uint64) *blockState {
		st, ok := states[addr]
		if !ok {
			st = &blockState{
				pending:  make([][]pendingRange, len(params)),
				endLive:  make([][]callconv.Location, len(params)),
				recorded: make([][]recorded, len(params)),
			}
			states[addr] = st
		}
		return st
	}

	// Seed the entry block with one zero-length pending range per
	// parameter at its convention-supplied location.
	entryState := state(entry)
	for i, loc := range entryLocs {
		entryState.pending[i] = []pendingRange{{loc: loc, count: 1}}
	}

	worklist := []workItem{{block: entry}}
	for len(worklist) > 0 {
		item := worklist[0]
		worklist = worklist[1:]
		block, ok := byStart[item.block]
		if !ok {
			continue
		}
		st := state(item.block)

		changed := false
		if item.hasPred {
			changed = b.merge(st, states[item.pred])
		}
		// Rewalk on first visit or whenever the merge introduced new
		// information; unchanged re-entries stop propagating.
		if st.walked && !changed {
			continue
		}
		b.walkBlock(block, st)
		st.walked = true
		for _, edge := range block.Edges {
			worklist = append(worklist, workItem{block: edge.To, pred: item.block, hasPred: true})
		}
	}

	return b.finalize(paramIDs, states, fnRanges)
}

// merge folds the predecessor's end-state into a block's pending set. An
// equivalent location already pending only bumps the traversal counter;
// anything else is new information.
func (b *Builder) merge(st *blockState, pred *blockState) bool {
	if pred == nil {
		return false
	}
	changed := false
	for p := range st.pending {
		for _, loc := range pred.endLive[p] {
			if existing := findEquivalent(b.Dir, st.pending[p], loc); existing != nil {
				existing.count++
				continue
			}
			st.pending[p] = append(st.pending[p], pendingRange{loc: loc, count: 1})
			changed = true
		}
	}
	return changed
}

// walkBlock replays the block body over the pending set, extending,
// killing, and aliasing ranges instruction by instruction.
func (b *Builder) walkBlock(block *disasm.Block, st *blockState) {
	live := make([][]active, len(st.pending))
	for p, pendings := range st.pending {
		for _, pr := range pendings {
			live[p] = append(live[p], active{loc: pr.loc, start: block.Start, end: block.Start})
		}
		st.recorded[p] = nil
		st.endLive[p] = nil
	}

	for i := range block.Instrs {
		in := &block.Instrs[i]
		for p := range live {
			var survivors []active
			var opened []active
			for _, a := range live[p] {
				if b.kills(in, a.loc) {
					// Any write is treated as a kill; intent to reuse
					// versus write-through cannot be distinguished.
					if a.end > a.start {
						st.recorded[p] = append(st.recorded[p], recorded{start: a.start, end: a.end, loc: a.loc})
					}
					continue
				}
				if alias, ok := b.aliasTarget(in, a.loc); ok {
					opened = append(opened, active{loc: alias, start: in.End(), end: in.End()})
				}
				a.end = in.End()
				survivors = append(survivors, a)
			}
			for _, o := range opened {
				if findActive(b.Dir, survivors, o.loc) == nil {
					survivors = append(survivors, o)
				}
			}
			live[p] = survivors
		}
	}

	for p := range live {
		for _, a := range live[p] {
			if a.end > a.start {
				st.recorded[p] = append(st.recorded[p], recorded{start: a.start, end: a.end, loc: a.loc})
			}
			st.endLive[p] = append(st.endLive[p], a.loc)
		}
	}
}

// kills reports whether the instruction destroys the value at loc: a
// register-output operand matching the location's canonical base
// register, or a call when the convention marks the register volatile.
func (b *Builder) kills(in *disasm.Instruction, loc callconv.Location) bool {
	if !loc.InRegister() {
		return false
	}
	canon := arch.Canonical(b.Dir, loc.Reg)
	if in.IsCall {
		return !b.Conv.IsNonVolatile(canon)
	}
	for _, op := range in.Operands {
		if !op.Flags.Has(disasm.OpOut | disasm.OpRegister) {
			continue
		}
		for _, reg := range op.Regs {
			if arch.Canonical(b.Dir, reg) == canon {
				return true
			}
		}
	}
	return false
}

// aliasTarget reports the location opened by a mov-like instruction whose
// single register input matches loc: the parameter now also lives in the
// output register, beginning immediately after the instruction.
func (b *Builder) aliasTarget(in *disasm.Instruction, loc callconv.Location) (callconv.Location, bool) {
	if !loc.InRegister() || !disasm.IsMovLike(in.Mnemonic) {
		return callconv.Location{}, false
	}
	var out, input *disasm.Operand
	inputs := 0
	for i := range in.Operands {
		op := &in.Operands[i]
		if op.Flags.Has(disasm.OpOut) {
			out = op
		} else if op.Flags.Has(disasm.OpIn) {
			inputs++
			input = op
		}
	}
	if out == nil || input == nil || inputs != 1 {
		return callconv.Location{}, false
	}
	if !out.Flags.Has(disasm.OpRegister) || !input.Flags.Has(disasm.OpRegister) || len(out.Regs) == 0 || len(input.Regs) == 0 {
		return callconv.Location{}, false
	}
	canon := arch.Canonical(b.Dir, loc.Reg)
	if arch.Canonical(b.Dir, input.Regs[0]) != canon {
		return callconv.Location{}, false
	}
	if arch.Canonical(b.Dir, out.Regs[0]) == canon {
		return callconv.Location{}, false
	}
	target := out.Regs[0]
	size := loc.Size
	if reg, ok := b.Dir.RegisterByID(target); ok && reg.Size < size {
		size = reg.Size
	}
	return callconv.Location{Kind: callconv.LocRegister, Reg: target, Size: size}, true
}

func findEquivalent(dir arch.Directory, pendings []pendingRange, loc callconv.Location) *pendingRange {
	for i := range pendings {
		if pendings[i].loc.Equivalent(dir, loc) {
			return &pendings[i]
		}
	}
	return nil
}

func findActive(dir arch.Directory, actives []active, loc callconv.Location) *active {
	for i := range actives {
		if actives[i].loc.Equivalent(dir, loc) {
			return &actives[i]
		}
	}
	return nil
}
