package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"banana-slides/internal/assets"
	"banana-slides/internal/config"
	"banana-slides/internal/export"
	"banana-slides/internal/orchestrator"
	"banana-slides/internal/state"
	"banana-slides/pkg/models"
)

var (
	createPrompt   string
	createPages    int
	createLanguage string
	createTemplate string
	createFormat   string
	createOut      string
	createNoExport bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a presentation from a prompt",
	Long: `Create a new project from a natural-language prompt and generate it
end to end: outline, per-slide content and images, and review. When the
deck is ready it is exported to the requested format.

Interrupting a run is safe; continue it later with 'banana-slides resume'.`,
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createPrompt, "prompt", "p", "", "what the presentation should cover (required)")
	createCmd.Flags().IntVarP(&createPages, "pages", "n", 0, "requested page count (0 lets the model decide)")
	createCmd.Flags().StringVarP(&createLanguage, "language", "l", "", "output language: en, zh, ja, or auto")
	createCmd.Flags().StringVarP(&createTemplate, "template", "t", "", "path to a style reference image")
	createCmd.Flags().StringVarP(&createFormat, "format", "f", "", "export format: pptx or pdf")
	createCmd.Flags().StringVarP(&createOut, "out", "o", "", "output file path")
	createCmd.Flags().BoolVar(&createNoExport, "no-export", false, "skip exporting after generation")
	createCmd.MarkFlagRequired("prompt")
}

func runCreate(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(createPrompt) == "" {
		return fmt.Errorf("prompt must not be empty")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	language := cfg.Defaults.Language
	if createLanguage != "" {
		language = createLanguage
	}
	pages := cfg.Defaults.Pages
	if cmd.Flags().Changed("pages") {
		pages = createPages
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

	project := &models.Project{
		ID:             uuid.NewString()[:8],
		Prompt:         createPrompt,
		Language:       language,
		RequestedPages: pages,
		Status:         models.ProjectPlanning,
		CreatedAt:      time.Now(),
	}
	if createTemplate != "" {
		ref, err := dir.SaveTemplateImage(project.ID, createTemplate)
		if err != nil {
			return err
		}
		project.TemplateRef = ref
	}
	if err := db.CreateProject(project); err != nil {
		return err
	}
	fmt.Printf("Project %s created\n", project.ID)

	logger := orchestrator.NewDebugLoggerForProject(dataDir(), project.ID)
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

	summary, runErr := orch.Run(ctx, project)
	close(events)
	<-printerDone

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Interrupted. Continue with: banana-slides resume %s\n", project.ID)
		}
		return runErr
	}

	fmt.Printf("Generation finished: %d accepted, %d failed\n", summary.Accepted, summary.Failed)
	if project.Status != models.ProjectReady {
		return fmt.Errorf("project %s is %s; too many slides failed to export", project.ID, project.Status)
	}
	if createNoExport {
		fmt.Printf("Export later with: banana-slides export %s\n", project.ID)
		return nil
	}

	return exportProject(cfg, db, dir, project, createFormat, createOut)
}

// exportProject renders the project's last checkpoint to an artifact
// file and marks the project exported. An empty format or output path
// falls back to the configured format and "<project-id>.<format>".
func exportProject(cfg *config.Config, db *state.DB, dir *assets.Dir, project *models.Project, formatFlag, outFlag string) error {
	name := cfg.Export.Format
	if formatFlag != "" {
		name = formatFlag
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return err
	}

	slides, err := db.GetSlides(project.ID)
	if err != nil {
		return err
	}

	renderer := export.NewRenderer(dir, cfg.Export.FailureTolerance)
	data, err := renderer.Render(export.Snapshot{Project: project, Slides: slides}, format)
	if err != nil {
		return err
	}

	out := outFlag
	if out == "" {
		out = fmt.Sprintf("%s.%s", project.ID, format)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	project.Status = models.ProjectExported
	if err := db.UpdateProject(project); err != nil {
		return err
	}
	fmt.Printf("Exported %s\n", out)
	return nil
}
