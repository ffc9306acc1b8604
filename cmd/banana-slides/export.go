package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"banana-slides/internal/config"
	"banana-slides/pkg/models"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Export a generated project to a file",
	Long: `Export renders the project's stored slides into a presentation
artifact. It reads only the last checkpoint and the image files on
disk; no model is called.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "export format: pptx or pdf")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file path")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	project, err := db.GetProject(args[0])
	if err != nil {
		return err
	}
	switch project.Status {
	case models.ProjectReady, models.ProjectExported, models.ProjectPartiallyFailed:
	default:
		return fmt.Errorf("project %s is still %s; finish generation first (banana-slides resume %s)",
			project.ID, project.Status, project.ID)
	}

	dir, err := openAssets()
	if err != nil {
		return err
	}

	return exportProject(cfg, db, dir, project, exportFormat, exportOut)
}
