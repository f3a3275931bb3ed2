package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/alpkeskin/gotoon"
	"github.com/spf13/cobra"
)

var (
	statusJSON bool
	statusToon bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the project repository status",
	Long: `Show whether the project is tracked, the dirty state of the working
tree, and the total number of snapshots.

A directory that has not been initialized reports "not tracked" instead of
failing.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	statusCmd.Flags().BoolVar(&statusToon, "toon", false, "Output in LLM-friendly toon format")
}

func runStatus(cmd *cobra.Command, args []string) error {
	service, err := openProject()
	if err != nil {
		return err
	}

	status, err := service.Status(cmd.Context())
	if err != nil {
		return err
	}

	if statusJSON {
		output, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if statusToon {
		output, err := gotoon.Encode(status)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	if !status.IsRepo {
		fmt.Println("Not tracked (run: labtrail init)")
		return nil
	}

	fmt.Printf("Project: %s\n", service.Path())
	if status.Branch != "" {
		fmt.Printf("Branch: %s\n", status.Branch)
	}
	fmt.Printf("Snapshots: %d\n", status.TotalCommits)

	if !status.IsDirty {
		fmt.Println("Working tree clean")
		return nil
	}

	fmt.Printf("Uncommitted changes (%d):\n", len(status.Changes))
	for _, change := range status.Changes {
		fmt.Printf("  %-10s %s\n", change.Status, change.Path)
	}
	return nil
}
