package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pders01/labtrail/internal/gitrepo"
)

var saveCmd = &cobra.Command{
	Use:   "save [message]",
	Short: "Record a snapshot of the current project state",
	Long: `Record an immutable snapshot of the project's current state.

Any pending automatic snapshot buffer is flushed into this snapshot. With a
clean working tree nothing is recorded and the command reports that.`,
	Args: cobra.ArbitraryArgs,
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	service, err := openProject()
	if err != nil {
		return err
	}

	if !service.IsRepo() {
		return fmt.Errorf("not a labtrail project (run: labtrail init)")
	}

	message := strings.Join(args, " ")

	snapshot, err := service.SaveSnapshot(cmd.Context(), message)
	if errors.Is(err, gitrepo.ErrNoChanges) {
		fmt.Println("No changes to snapshot")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("✓ Snapshot %s\n", snapshot.ShortID())
	fmt.Printf("  %s\n", snapshot.Message)
	if len(snapshot.ChangedFiles) > 0 {
		fmt.Printf("  Files: %d\n", len(snapshot.ChangedFiles))
	}
	return nil
}
