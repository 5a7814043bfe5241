package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"symforge/internal/observ"
	"symforge/internal/project"
	"symforge/internal/snapshot"
	"symforge/internal/symbols"
)

var (
	buildOutput  string
	buildTimings bool
)

func init() {
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "snapshot path (default symforge.snap next to the manifest)")
	buildCmd.Flags().BoolVar(&buildTimings, "timings", false, "show timing information")
}

var buildCmd = &cobra.Command{
	Use:   "build [flags] [path]",
	Short: "Build a symbol set from a manifest",
	Long:  "Build a symbol set using symforge.toml as the declaration source and save it as a snapshot.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  buildExecution,
}

func buildExecution(cmd *cobra.Command, args []string) error {
	startDir := "."
	if len(args) == 1 {
		startDir = args[0]
	}
	log := newLogger(cmd)
	timer := observ.NewTimer()

	phase := timer.Begin("manifest")
	path, ok, err := project.Find(startDir)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no symforge.toml found under %s", startDir)
	}
	manifest, err := project.Load(path)
	if err != nil {
		return err
	}
	phase.Done(path)

	phase = timer.Begin("populate")
	st, _, err := manifest.Build(log)
	if err != nil {
		return err
	}
	phase.Done(fmt.Sprintf("%d symbols", len(st.All())))

	out := buildOutput
	if out == "" {
		out = filepath.Join(manifest.Root, "symforge.snap")
	}
	phase = timer.Begin("snapshot")
	if err := snapshot.Save(out, st, manifest.Config.Module.Target); err != nil {
		return err
	}
	phase.Done(out)

	quiet, _ := cmd.Flags().GetBool("quiet")
	if !quiet {
		var types, funcs int
		st.Each(func(_ symbols.SymbolID, sym *symbols.Symbol) bool {
			switch {
			case sym.Kind.IsType():
				types++
			case sym.Kind == symbols.SymbolFunction:
				funcs++
			}
			return true
		})
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d types, %d functions -> %s\n",
			manifest.Config.Module.Name, types, funcs, out)
	}
	if buildTimings {
		fmt.Fprint(cmd.OutOrStdout(), timer.Summary())
	}
	timer.Log(log)
	return nil
}
