package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/provalabs/prova/internal/config"
	"github.com/provalabs/prova/internal/render"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "prova",
	Short: "ProVA: turn any tabular dataset into an Excel dashboard",
	Long: `ProVA inspects a tabular dataset, plans an executive dashboard
(pivots, charts, KPIs, slicers), and renders it into a finished workbook.`,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.prova/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = &cfgpkg.Global{FillStrategy: "median", Theme: render.DefaultTheme()}
		return
	}
	cfg = c
}

// notify writes a status line to stderr, the CLI's notify sink.
func notify(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}
