package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <snapshot-id> <file>",
	Short: "Print a file's content as of a snapshot",
	Long: `Print the content a file had at the time of a snapshot, without
touching the working tree.

Example:
  labtrail show a1b2c3d4 notes/experiment-3.md`,
	Args: cobra.ExactArgs(2),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	service, err := openProject()
	if err != nil {
		return err
	}

	if !service.IsRepo() {
		return fmt.Errorf("not a labtrail project (run: labtrail init)")
	}

	content, err := service.FileAtSnapshot(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Print(content)
	return nil
}
