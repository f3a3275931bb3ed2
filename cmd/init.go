package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pders01/labtrail/internal/models"
)

var (
	initTitle       string
	initDescription string
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a research project with version tracking",
	Long: `Initialize a directory as a labtrail research project.

This command:
  - creates the standard project layout (docs/, data/, notes/)
  - writes research.json with the project metadata and engine settings
  - initializes the underlying repository
  - records the initial snapshot

Existing directories can be initialized in place; files already present are
included in the initial snapshot.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initTitle, "title", "", "Project title (default: directory name)")
	initCmd.Flags().StringVar(&initDescription, "description", "", "Project description")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := projectPath
	if len(args) > 0 {
		path = args[0]
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	// Standard research layout
	for _, dir := range []string{"docs", "data", "notes"} {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	title := initTitle
	if title == "" {
		title = filepath.Base(abs)
	}

	if _, err := os.Stat(models.MetadataPath(abs)); err == nil {
		return fmt.Errorf("project already initialized: %s exists", models.MetadataFile)
	}

	meta := models.NewProjectMetadata(title, initDescription)
	if err := meta.Save(abs); err != nil {
		return err
	}

	projectPath = abs
	service, err := openProject()
	if err != nil {
		return err
	}

	if err := service.Init(cmd.Context()); err != nil {
		return err
	}

	snapshot, err := service.SaveSnapshot(cmd.Context(), "Initial snapshot")
	if err != nil {
		return fmt.Errorf("failed to record initial snapshot: %w", err)
	}

	fmt.Printf("✓ Initialized project: %s\n", title)
	fmt.Printf("  Path: %s\n", abs)
	fmt.Printf("  Initial snapshot: %s\n", snapshot.ShortID())
	return nil
}
