package cmd

import (
	"fmt"

	"hotcake-cash-recon/internal/loader"

	"github.com/spf13/cobra"
)

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect <file.xlsx> [more.xlsx...]",
	Short: "Classify xlsx exports by content",
	Long: `Detect inspects each xlsx file and reports which export it looks like:
the Hotcake orders report, the Hotcake billing report, the POS history
export, or the card-machine export. Useful when a batch of downloads has
lost its file names.

Example:
  cashrecon detect downloads/*.xlsx`,

	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	l := loader.New()
	w := cmd.OutOrStdout()

	for _, path := range args {
		d := l.Detect(path)
		if d.Sheet != "" {
			fmt.Fprintf(w, "%s: %s (sheet %s; %s)\n", path, d.Kind, d.Sheet, d.Reason)
		} else {
			fmt.Fprintf(w, "%s: %s (%s)\n", path, d.Kind, d.Reason)
		}
	}
	return nil
}
