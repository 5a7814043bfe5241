package main

import (
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"symforge/internal/arch"
	"symforge/internal/callconv"
	"symforge/internal/disasm"
	"symforge/internal/liverange"
	"symforge/internal/snapshot"
	"symforge/internal/symbols"
)

var (
	rangesCode  string
	rangesBase  uint64
	rangesWrite bool
)

func init() {
	rangesCmd.Flags().StringVar(&rangesCode, "code", "", "raw code bytes the function ranges point into")
	rangesCmd.Flags().Uint64Var(&rangesBase, "base", 0, "load address of the code bytes")
	rangesCmd.Flags().BoolVar(&rangesWrite, "write", false, "write computed ranges back into the snapshot")
	_ = rangesCmd.MarkFlagRequired("code")
}

var rangesCmd = &cobra.Command{
	Use:   "ranges [flags] <snapshot> [function...]",
	Short: "Compute parameter live ranges from machine code",
	Long:  "Disassemble each function's code and compute where every parameter lives, instruction by instruction.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  rangesExecution,
}

// cachingDisasm disassembles each entry once. Prefetch fills the cache in
// parallel; the analysis afterwards stays single-threaded because it
// mutates the store.
type cachingDisasm struct {
	inner disasm.Disassembler

	mu     sync.Mutex
	blocks map[uint64][]disasm.Block
}

func (c *cachingDisasm) DisassembleFunction(addr uint64) ([]disasm.Block, error) {
	c.mu.Lock()
	cached, ok := c.blocks[addr]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}
	blocks, err := c.inner.DisassembleFunction(addr)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.blocks[addr] = blocks
	c.mu.Unlock()
	return blocks, nil
}

func (c *cachingDisasm) prefetch(entries []uint64) error {
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			_, err := c.DisassembleFunction(entry)
			return err
		})
	}
	return g.Wait()
}

func rangesExecution(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd)
	st, triple, err := snapshot.Load(args[0], log)
	if err != nil {
		return err
	}
	conv, dir, err := conventionFor(triple)
	if err != nil {
		return err
	}
	code, err := os.ReadFile(rangesCode)
	if err != nil {
		return err
	}

	fns, err := selectFunctions(st, args[1:])
	if err != nil {
		return err
	}
	entries := make([]uint64, 0, len(fns))
	for _, fn := range fns {
		entries = append(entries, st.MustGet(fn).Ranges[0].Offset)
	}
	cache := &cachingDisasm{
		inner:  disasm.NewAMD64(dir, code, rangesBase),
		blocks: make(map[uint64][]disasm.Block, len(fns)),
	}
	if err := cache.prefetch(entries); err != nil {
		return err
	}

	builder := &liverange.Builder{
		Store:  st,
		Conv:   conv,
		Disasm: cache,
		Dir:    dir,
		Log:    log,
	}
	out := cmd.OutOrStdout()
	for _, fn := range fns {
		if err := builder.BuildFunction(fn); err != nil {
			return err
		}
		sym := st.MustGet(fn)
		fmt.Fprintf(out, "%s @%#x\n", sym.Qualified, sym.Ranges[0].Offset)
		params, err := st.ChildrenOf(fn, symbols.SymbolParameter)
		if err != nil {
			return err
		}
		for _, p := range params {
			ps := st.MustGet(p)
			fmt.Fprintf(out, "  %s:", ps.Name)
			for _, lr := range ps.LiveRanges {
				fmt.Fprintf(out, " [%#x,%#x)=%s", lr.Offset, lr.Offset+lr.Size, lr.Loc.Format(dir))
			}
			fmt.Fprintln(out)
		}
	}

	if rangesWrite {
		return snapshot.Save(args[0], st, triple)
	}
	return nil
}

func conventionFor(triple string) (callconv.Convention, arch.Directory, error) {
	dir := arch.AMD64(0)
	switch triple {
	case "x86_64-pc-windows-msvc":
		conv, err := callconv.NewWin64(dir)
		return conv, dir, err
	}
	return nil, nil, fmt.Errorf("no calling convention rules for target %q", triple)
}

func selectFunctions(st *symbols.Store, names []string) ([]symbols.SymbolID, error) {
	if len(names) == 0 {
		var fns []symbols.SymbolID
		st.Each(func(id symbols.SymbolID, sym *symbols.Symbol) bool {
			if sym.Kind == symbols.SymbolFunction {
				fns = append(fns, id)
			}
			return true
		})
		return fns, nil
	}
	fns := make([]symbols.SymbolID, 0, len(names))
	for _, name := range names {
		id, err := st.FindByName(name)
		if err != nil {
			return nil, err
		}
		sym := st.MustGet(id)
		if sym.Kind != symbols.SymbolFunction {
			return nil, fmt.Errorf("%s is a %s, not a function", name, sym.Kind)
		}
		fns = append(fns, id)
	}
	return fns, nil
}
