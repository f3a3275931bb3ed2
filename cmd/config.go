package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the project's auto-snapshot settings",
	RunE:  runConfigGet,
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the active auto-snapshot settings",
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change an auto-snapshot setting",
	Long: `Change one auto-snapshot setting and persist it to the project.

Keys:
  enabled           true|false
  debounce_ms       milliseconds of quiet time before an automatic snapshot
  ignore_patterns   comma-separated glob patterns
  max_auto_commits  cap used to derive the pending-change limit

Example:
  labtrail config set debounce_ms 5000`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	service, err := openProject()
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(service.Config(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	service, err := openProject()
	if err != nil {
		return err
	}

	cfg := service.Config()
	key, value := args[0], args[1]

	switch key {
	case "enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for enabled: %s", value)
		}
		cfg.Enabled = enabled
	case "debounce_ms":
		ms, err := strconv.Atoi(value)
		if err != nil || ms <= 0 {
			return fmt.Errorf("invalid value for debounce_ms: %s", value)
		}
		cfg.DebounceMs = ms
	case "ignore_patterns":
		var patterns []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
		cfg.IgnorePatterns = patterns
	case "max_auto_commits":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid value for max_auto_commits: %s", value)
		}
		cfg.MaxAutoCommits = n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	if err := service.SetConfig(cfg); err != nil {
		return err
	}

	fmt.Printf("✓ %s = %s\n", key, value)
	return nil
}
