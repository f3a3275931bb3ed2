package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pders01/labtrail/internal/engine"
	"github.com/pders01/labtrail/internal/gitrepo"
)

var restoreRequireClean bool

var restoreCmd = &cobra.Command{
	Use:   "restore <snapshot-id>",
	Short: "Restore the project to a prior snapshot",
	Long: `Overwrite the working tree with the state of a prior snapshot.

Uncommitted changes are preserved as a checkpoint snapshot before the
restore, so nothing is lost and the restore itself can be undone. With
--require-clean the restore is rejected instead when uncommitted changes
exist.`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().BoolVar(&restoreRequireClean, "require-clean", false, "Reject the restore when uncommitted changes exist")
}

func runRestore(cmd *cobra.Command, args []string) error {
	service, err := openProject()
	if err != nil {
		return err
	}

	if !service.IsRepo() {
		return fmt.Errorf("not a labtrail project (run: labtrail init)")
	}

	snapshotID := args[0]
	opts := engine.RestoreOptions{RequireClean: restoreRequireClean}

	err = service.Restore(cmd.Context(), snapshotID, opts)
	if errors.Is(err, gitrepo.ErrRestoreConflict) {
		return fmt.Errorf("uncommitted changes present; save them first or drop --require-clean")
	}
	if err != nil {
		return err
	}

	fmt.Printf("✓ Restored to %s\n", snapshotID)
	return nil
}
