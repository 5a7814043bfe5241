package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"symforge/internal/snapshot"
	"symforge/internal/symbols"
)

var (
	dumpKinds  []string
	dumpFormat string
)

func init() {
	dumpCmd.Flags().StringSliceVar(&dumpKinds, "kind", nil, "only show these symbol kinds (e.g. udt,function)")
	dumpCmd.Flags().StringVar(&dumpFormat, "format", "pretty", "output format (pretty|json)")
}

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <snapshot>",
	Short: "Print the symbols in a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  dumpExecution,
}

type dumpRow struct {
	ID        uint32 `json:"id"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Size      int    `json:"size,omitempty"`
	Align     int    `json:"align,omitempty"`
	Addr      uint64 `json:"addr,omitempty"`
	RangeSize uint64 `json:"range_size,omitempty"`
}

func dumpExecution(cmd *cobra.Command, args []string) error {
	log := newLogger(cmd)
	st, triple, err := snapshot.Load(args[0], log)
	if err != nil {
		return err
	}

	wanted := make(map[string]bool, len(dumpKinds))
	for _, k := range dumpKinds {
		wanted[strings.ToLower(strings.TrimSpace(k))] = true
	}

	var rows []dumpRow
	st.Each(func(id symbols.SymbolID, sym *symbols.Symbol) bool {
		kind := sym.Kind.String()
		if len(wanted) > 0 && !wanted[kind] {
			return true
		}
		row := dumpRow{
			ID:    uint32(id),
			Kind:  kind,
			Name:  sym.Qualified,
			Size:  sym.Size,
			Align: sym.Align,
			Addr:  sym.Addr,
		}
		if sym.Kind == symbols.SymbolFunction && len(sym.Ranges) > 0 {
			row.Addr = sym.Ranges[0].Offset
			for _, r := range sym.Ranges {
				row.RangeSize += r.Size
			}
		}
		rows = append(rows, row)
		return true
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	out := cmd.OutOrStdout()
	if strings.ToLower(dumpFormat) == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	colorFlag, _ := cmd.Flags().GetString("color")
	useColor := colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout))
	kindColor := color.New(color.FgCyan)
	if !useColor {
		kindColor.DisableColor()
	}

	fmt.Fprintf(out, "target %s, %d symbols\n", triple, len(rows))
	for _, row := range rows {
		fmt.Fprintf(out, "%6d  %s %-40s", row.ID, kindColor.Sprintf("%-12s", row.Kind), row.Name)
		if row.Size > 0 {
			fmt.Fprintf(out, " size=%d align=%d", row.Size, row.Align)
		}
		if row.Addr != 0 {
			fmt.Fprintf(out, " @%#x", row.Addr)
		}
		if row.RangeSize != 0 {
			fmt.Fprintf(out, "+%#x", row.RangeSize)
		}
		fmt.Fprintln(out)
	}
	return nil
}
