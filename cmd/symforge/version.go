package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"symforge/internal/version"
)

type versionPayload struct {
	Tool      string `json:"tool"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
}

var (
	versionFormat   string
	versionShowHash bool
	versionShowDate bool
	versionShowFull bool
)

func init() {
	versionCmd.Flags().BoolVar(&versionShowHash, "hash", false, "include git commit hash")
	versionCmd.Flags().BoolVar(&versionShowDate, "date", false, "include build timestamp")
	versionCmd.Flags().BoolVar(&versionShowFull, "full", false, "show every recorded bit of build metadata")
	versionCmd.Flags().StringVar(&versionFormat, "format", "pretty", "output format (pretty|json)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show symforge build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(versionFormat)
		showHash := versionShowHash || versionShowFull
		showDate := versionShowDate || versionShowFull

		switch format {
		case "pretty", "json":
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", versionFormat)
		}

		if format == "json" {
			payload := versionPayload{
				Tool:    "symforge",
				Version: version.Version,
			}
			if showHash {
				payload.GitCommit = version.GitCommit
			}
			if showDate {
				payload.BuildDate = version.BuildDate
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(payload)
		}

		renderVersionPretty(cmd.OutOrStdout(), showHash, showDate)
		return nil
	},
}

func renderVersionPretty(w io.Writer, showHash, showDate bool) {
	fmt.Fprintf(w, "symforge %s\n", version.Version)
	if showHash && version.GitCommit != "" {
		fmt.Fprintf(w, "  commit %s\n", version.GitCommit)
	}
	if showDate && version.BuildDate != "" {
		fmt.Fprintf(w, "  built  %s\n", version.BuildDate)
	}
}
