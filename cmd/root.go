package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pders01/labtrail/internal/config"
	"github.com/pders01/labtrail/internal/engine"
)

var (
	cfgFile     string
	projectPath string
)

// registry owns the live per-project engine instances for this process.
var registry = engine.NewRegistry()

var rootCmd = &cobra.Command{
	Use:   "labtrail",
	Short: "Automatic version history for research projects",
	Long: `labtrail keeps a file-system-backed version history for research projects:
every edit can be captured as an immutable snapshot, snapshots form a
navigable history tree, and a project can be restored to any prior snapshot.

Snapshots can be taken manually (labtrail save) or automatically: the watch
command observes the project directory and coalesces bursts of edits into
single snapshots without stalling your work.`,
}

func Execute() {
	defer registry.CloseAll()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/labtrail/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&projectPath, "project", "C", ".", "project directory")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "labtrail")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()

	config.SetDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// openProject returns the live engine service for the --project directory.
func openProject() (*engine.Service, error) {
	service, err := registry.Open(projectPath)
	if err != nil {
		return nil, err
	}
	return service, nil
}
