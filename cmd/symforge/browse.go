package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"symforge/internal/arch"
	"symforge/internal/snapshot"
	"symforge/internal/ui"
)

var browseCmd = &cobra.Command{
	Use:   "browse <snapshot>",
	Short: "Browse a symbol set interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  browseExecution,
}

func browseExecution(cmd *cobra.Command, args []string) error {
	if !isTerminal(os.Stdout) {
		return fmt.Errorf("browse needs a terminal; use dump for plain output")
	}
	log := newLogger(cmd)
	st, _, err := snapshot.Load(args[0], log)
	if err != nil {
		return err
	}
	model := ui.NewBrowser(st, arch.AMD64(0))
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
