package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "Load the configured layers and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadMunger(cmd.Context(), "layers")
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTARGET FIELD\tID PROPERTY\tSOURCE CRS\tFEATURES\tLOGGING")
		for _, l := range describeLayers(m) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\n",
				l.Name, l.TargetField, l.IDProperty, l.SourceCRS, l.Features, l.Logging)
		}
		fmt.Fprintf(tw, "\nworking CRS: %s\n", m.WorkingCRS())
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(layersCmd)
}
