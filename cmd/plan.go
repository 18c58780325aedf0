package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/provalabs/prova/internal/cleaning"
	"github.com/provalabs/prova/internal/dataset"
	"github.com/provalabs/prova/internal/planner"
)

var (
	planSheet   string
	planMetric  string
	planDateCol string
	planCatCol  string
	planFormat  string
)

var planCmd = &cobra.Command{
	Use:   "plan <file>",
	Short: "Print the dashboard plan for a dataset without rendering it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.Load(args[0], planSheet)
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
		spec, err := planner.Plan(ds, planner.Overrides{
			Metric:      planMetric,
			DateCol:     planDateCol,
			CategoryCol: planCatCol,
		}, plannerOptions())
		if err != nil {
			return err
		}
		switch planFormat {
		case "json", "":
			return spec.EncodeJSON(os.Stdout)
		case "yaml":
			return spec.EncodeYAML(os.Stdout)
		default:
			return fmt.Errorf("unsupported --format: %s (want json or yaml)", planFormat)
		}
	},
}

func init() {
	planCmd.Flags().StringVar(&planSheet, "sheet", "", "worksheet to load for spreadsheet input (default first)")
	planCmd.Flags().StringVar(&planMetric, "metric", "", "metric column (default first numeric)")
	planCmd.Flags().StringVar(&planDateCol, "date-col", "", "date column (default first detected)")
	planCmd.Flags().StringVar(&planCatCol, "category-col", "", "category column (default first low-cardinality categorical)")
	planCmd.Flags().StringVar(&planFormat, "format", "json", "output format: json or yaml")
	rootCmd.AddCommand(planCmd)
}
