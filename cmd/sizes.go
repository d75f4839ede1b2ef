package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joaorura/etdxpdf/internal/paper"
)

var sizesCmd = &cobra.Command{
	Use:   "sizes",
	Short: "List the supported paper sizes",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPAPER\tDIMENSIONS\tCANVAS")
		for _, s := range paper.Catalog() {
			fmt.Fprintf(w, "%s\t%s\t%.0f x %.0f mm\t%d x %d\n",
				s.ID, s.PaperSizeID, s.MM[0], s.MM[1], s.Canvas[0], s.Canvas[1])
		}
		_ = w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(sizesCmd)
}
