package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"banana-slides/pkg/models"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status [project-id]",
	Short: "Show recent projects, or one project's slides",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "how many recent projects to list")
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	statusStyles = map[models.ProjectStatus]lipgloss.Style{
		models.ProjectPlanning:        lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		models.ProjectGenerating:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		models.ProjectReady:           lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		models.ProjectExported:        lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		models.ProjectPartiallyFailed: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
)

func runStatus(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 1 {
		return printProjectStatus(db, args[0])
	}

	projects, err := db.ListProjects(statusLimit)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects yet. Start one with: banana-slides create -p \"...\"")
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-10s %-18s %-8s %-20s %s", "ID", "STATUS", "SLIDES", "CREATED", "PROMPT")))
	for _, p := range projects {
		slides, err := db.GetSlides(p.ID)
		if err != nil {
			return err
		}
		accepted := 0
		for _, s := range slides {
			if s.Status == models.SlideAccepted {
				accepted++
			}
		}
		status := string(p.Status)
		if style, ok := statusStyles[p.Status]; ok {
			status = style.Render(fmt.Sprintf("%-18s", status))
		}
		fmt.Printf("%-10s %s %-8s %-20s %s\n",
			p.ID,
			status,
			fmt.Sprintf("%d/%d", accepted, len(slides)),
			p.CreatedAt.Format("2006-01-02 15:04"),
			truncate(p.Prompt, 48),
		)
	}
	return nil
}

func printProjectStatus(db projectStore, id string) error {
	p, err := db.GetProject(id)
	if err != nil {
		return err
	}
	slides, err := db.GetSlides(id)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", headerStyle.Render("Project"), p.ID)
	fmt.Printf("  Prompt:   %s\n", truncate(p.Prompt, 72))
	fmt.Printf("  Language: %s\n", p.Language)
	fmt.Printf("  Status:   %s\n", p.Status)
	if p.FailedSlides > 0 {
		fmt.Printf("  Failed:   %d slides\n", p.FailedSlides)
	}
	fmt.Println()

	for _, s := range slides {
		line := fmt.Sprintf("  %2d. %-12s %s", s.Index+1, s.Status, truncate(s.Title, 56))
		if s.Status == models.SlideFailed && s.LastError != "" {
			line += dimStyle.Render("  (" + truncate(s.LastError, 48) + ")")
		}
		fmt.Println(line)
	}
	return nil
}

// projectStore is the slice of the store the status view needs.
type projectStore interface {
	GetProject(id string) (*models.Project, error)
	GetSlides(projectID string) ([]*models.Slide, error)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
