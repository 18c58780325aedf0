package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/provalabs/prova/internal/cleaning"
	"github.com/provalabs/prova/internal/dataset"
)

var inspectSheet string

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Load, clean, and report the inferred column roles of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.Load(args[0], inspectSheet)
		if err != nil {
			return err
		}
		fill, err := cleaning.ParseFillStrategy(cfg.FillStrategy)
		if err != nil {
			return err
		}
		if ds, err = cleaning.Clean(ds, fill); err != nil {
			return err
		}

		roles := dataset.DetectRoles(ds)
		kind := make(map[string]string)
		for _, c := range roles.DateCols {
			kind[c] = "date"
		}
		for _, c := range roles.NumericCols {
			kind[c] = "numeric"
		}
		for _, c := range roles.CategoricalCols {
			kind[c] = "categorical"
		}

		fmt.Printf("Dataset: %s\n", ds.Name)
		fmt.Printf("Rows: %d  Columns: %d\n\n", ds.Rows(), len(ds.Columns))
		for _, col := range ds.Columns {
			fmt.Printf("- %s: %s (non-missing %d, unique %d)\n",
				col.Name, kind[col.Name], col.CountNonMissing(), col.Unique())
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectSheet, "sheet", "", "worksheet to load for spreadsheet input (default first)")
	rootCmd.AddCommand(inspectCmd)
}
