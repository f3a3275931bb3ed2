package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	diffJSON  bool
	diffPatch bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <from-id> <to-id>",
	Short: "Compare two snapshots",
	Long: `Compare two snapshots and show the changed files with line counts.

Example:
  labtrail diff a1b2c3d4 e5f6a7b8 --patch`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output as JSON")
	diffCmd.Flags().BoolVar(&diffPatch, "patch", false, "Show the full patch text")
}

func runDiff(cmd *cobra.Command, args []string) error {
	service, err := openProject()
	if err != nil {
		return err
	}

	if !service.IsRepo() {
		return fmt.Errorf("not a labtrail project (run: labtrail init)")
	}

	diff, err := service.Diff(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	if diffJSON {
		output, err := json.MarshalIndent(diff, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if len(diff.Files) == 0 {
		fmt.Println("No differences")
		return nil
	}

	for _, file := range diff.Files {
		fmt.Printf("%-10s %s (+%d -%d)\n", file.Status, file.Path, file.Additions, file.Deletions)
	}
	fmt.Printf("\n%d files changed, %d insertions(+), %d deletions(-)\n",
		diff.Stats.FilesChanged, diff.Stats.Additions, diff.Stats.Deletions)

	if diffPatch && diff.Patch != "" {
		fmt.Println()
		fmt.Println(diff.Patch)
	}
	return nil
}
