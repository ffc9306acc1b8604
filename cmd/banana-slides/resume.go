package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"banana-slides/internal/config"
	"banana-slides/internal/orchestrator"
	"banana-slides/pkg/models"
)

var (
	resumeFormat   string
	resumeOut      string
	resumeNoExport bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume <project-id>",
	Short: "Continue an interrupted generation run",
	Long: `Resume picks up a project from its last checkpoint. Slides that were
already accepted are untouched; slides with generated content keep it
and only run the remaining steps.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().StringVarP(&resumeFormat, "format", "f", "", "export format: pptx or pdf")
	resumeCmd.Flags().StringVarP(&resumeOut, "out", "o", "", "output file path")
	resumeCmd.Flags().BoolVar(&resumeNoExport, "no-export", false, "skip exporting after generation")
}

func runResume(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	dir, err := openAssets()
	if err != nil {
		return err
	}

	projectID := args[0]
	logger := orchestrator.NewDebugLoggerForProject(dataDir(), projectID)
	defer logger.Close()

	events := make(chan orchestrator.Event, 64)
	printerDone := make(chan struct{})
	go func() {
		defer close(printerDone)
		printProgress(events)
	}()

	orch, err := buildOrchestrator(ctx, cfg, db, dir, logger, events)
	if err != nil {
		close(events)
		<-printerDone
		return err
	}

	summary, runErr := orch.Resume(ctx, projectID)
	close(events)
	<-printerDone

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Interrupted. Continue with: banana-slides resume %s\n", projectID)
		}
		return runErr
	}

	fmt.Printf("Generation finished: %d accepted, %d failed\n", summary.Accepted, summary.Failed)

	project, err := db.GetProject(projectID)
	if err != nil {
		return err
	}
	if project.Status != models.ProjectReady {
		return fmt.Errorf("project %s is %s; too many slides failed to export", project.ID, project.Status)
	}
	if resumeNoExport {
		fmt.Printf("Export later with: banana-slides export %s\n", project.ID)
		return nil
	}
	return exportProject(cfg, db, dir, project, resumeFormat, resumeOut)
}
