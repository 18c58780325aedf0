package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
)

var (
	sampleOutput string
	sampleRows   int
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate a sample sales workbook for quick testing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := writeSampleWorkbook(sampleOutput, sampleRows); err != nil {
			return err
		}
		fmt.Printf("✓ Sample workbook written to %s\n", sampleOutput)
		return nil
	},
}

// writeSampleWorkbook emits a deterministic daily sales table: one row
// per day starting 2020-01-01, with region, sales, expenses, customer.
func writeSampleWorkbook(path string, rows int) error {
	if rows <= 0 {
		rows = 120
	}
	rng := rand.New(rand.NewSource(0))
	regions := []string{"North", "South", "East", "West"}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"
	header := []interface{}{"date", "region", "sales", "expenses", "customer"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		row := []interface{}{
			start.AddDate(0, 0, i),
			regions[rng.Intn(len(regions))],
			float64(150 + rng.Intn(200)),
			float64(100 + rng.Intn(120)),
			fmt.Sprintf("Cust_%d", 1+rng.Intn(50)),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func init() {
	sampleCmd.Flags().StringVarP(&sampleOutput, "output", "o", "sample_sales.xlsx", "output path")
	sampleCmd.Flags().IntVar(&sampleRows, "rows", 120, "number of data rows")
	rootCmd.AddCommand(sampleCmd)
}
