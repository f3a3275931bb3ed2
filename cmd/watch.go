package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pders01/labtrail/internal/models"
	"github.com/pders01/labtrail/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the project and snapshot changes automatically",
	Long: `Watch the project directory and record snapshots automatically.

Bursts of edits are coalesced: a snapshot is taken once the changes go quiet
for the configured debounce window, with a hard cap so continuous editing
still produces periodic snapshots. Paths matching the ignore patterns are
skipped.

Runs in the foreground until interrupted. Ctrl+C stops watching; files on
disk are untouched.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	service, err := openProject()
	if err != nil {
		return err
	}

	if !service.IsRepo() {
		return fmt.Errorf("not a labtrail project (run: labtrail init)")
	}

	if err := service.StartWatching(); err != nil {
		return err
	}
	defer service.StopWatching()

	unsubscribe := service.OnCommit(func(event models.CommitEvent) {
		if event.Err != nil {
			fmt.Fprintf(os.Stderr, "✗ Snapshot failed: %v\n", event.Err)
			return
		}
		fmt.Printf("✓ Snapshot %s (%s): %s\n",
			event.Snapshot.ShortID(), event.Trigger, event.Snapshot.Message)
	})
	defer unsubscribe()

	cfg := service.Config()
	w, err := watcher.New(service.Path(), cfg.IgnorePatterns, service.OnFileChange)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Close()

	fmt.Printf("Watching %s (debounce %s)\n", service.Path(), cfg.Debounce())
	fmt.Println("Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nStopped watching")
	return nil
}
