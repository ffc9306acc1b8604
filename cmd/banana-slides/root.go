package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "banana-slides",
	Short: "AI presentation generator",
	Long: `banana-slides turns a natural-language prompt into a finished
presentation: an outline, per-slide content, per-slide illustrations,
and a review pass over every slide, exported as PPTX or PDF.

Generation runs as a dependency-scheduled pipeline with bounded
parallelism, and every step is checkpointed to SQLite so an
interrupted run can be resumed with 'banana-slides resume'.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
