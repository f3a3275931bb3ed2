package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/alpkeskin/gotoon"
	"github.com/spf13/cobra"

	"github.com/pders01/labtrail/internal/config"
	"github.com/pders01/labtrail/internal/models"
)

var (
	historyLimit int
	historyJSON  bool
	historyToon  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the snapshot history tree",
	Long: `Show the project's snapshot history, newest first.

Restores appear as ordinary snapshots on top of the history, so the listing
is a single line back to the first snapshot, or to the window edge when the
limit truncates older history.

Examples:
  labtrail history
  labtrail history --limit 20
  labtrail history --json`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum snapshots to show (default from config)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output as JSON")
	historyCmd.Flags().BoolVar(&historyToon, "toon", false, "Output in LLM-friendly toon format")
}

func runHistory(cmd *cobra.Command, args []string) error {
	service, err := openProject()
	if err != nil {
		return err
	}

	if !service.IsRepo() {
		fmt.Println("Not tracked (run: labtrail init)")
		return nil
	}

	limit := historyLimit
	if limit <= 0 {
		limit = config.GetHistoryLimit()
	}

	nodes, err := service.History(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if len(nodes) == 0 {
		fmt.Println("No snapshots yet")
		return nil
	}

	if historyJSON {
		output, err := json.MarshalIndent(nodes, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(output))
		return nil
	}

	if historyToon {
		output, err := gotoon.Encode(nodes)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Println(output)
		return nil
	}

	for _, node := range nodes {
		printNode(node)
	}
	return nil
}

func printNode(node *models.HistoryNode) {
	snapshot := node.Snapshot
	fmt.Printf("○ %s  %s  %s\n",
		snapshot.ShortID(),
		snapshot.Timestamp.Format("2006-01-02 15:04"),
		snapshot.Message,
	)
	if node.IsRoot() && len(snapshot.ParentIDs) > 0 {
		fmt.Println("  (older history truncated)")
	}
}
