package config

import (
	"github.com/pders01/labtrail/internal/models"
	"github.com/spf13/viper"
)

// SetDefaults registers the engine defaults with viper. Called from the CLI
// root command before any config file is read, and from tests.
func SetDefaults() {
	viper.SetDefault("autocommit.enabled", true)
	viper.SetDefault("autocommit.debounce_ms", 2000)
	viper.SetDefault("autocommit.ignore_patterns", []string{".git/**", "*.tmp", "*.swp", ".DS_Store"})
	viper.SetDefault("autocommit.max_auto_commits", 10)
	viper.SetDefault("history.default_limit", 200)
}

// DefaultAutoCommitConfig returns the global auto-commit defaults.
func DefaultAutoCommitConfig() models.AutoCommitConfig {
	return models.AutoCommitConfig{
		Enabled:        viper.GetBool("autocommit.enabled"),
		DebounceMs:     viper.GetInt("autocommit.debounce_ms"),
		IgnorePatterns: viper.GetStringSlice("autocommit.ignore_patterns"),
		MaxAutoCommits: viper.GetInt("autocommit.max_auto_commits"),
	}
}

// GetHistoryLimit returns the default history window size.
func GetHistoryLimit() int {
	return viper.GetInt("history.default_limit")
}

// LoadProjectConfig returns the auto-commit configuration for a project:
// the global defaults overlaid with the project's persisted settings, when
// a metadata file exists.
func LoadProjectConfig(projectPath string) models.AutoCommitConfig {
	cfg := DefaultAutoCommitConfig()

	meta, err := models.LoadProjectMetadata(projectPath)
	if err != nil {
		return cfg
	}

	cfg.Enabled = meta.Settings.AutoCommit
	if meta.Settings.DebounceMs > 0 {
		cfg.DebounceMs = meta.Settings.DebounceMs
	}
	if len(meta.Settings.IgnorePatterns) > 0 {
		cfg.IgnorePatterns = meta.Settings.IgnorePatterns
	}
	if meta.Settings.MaxAutoCommits > 0 {
		cfg.MaxAutoCommits = meta.Settings.MaxAutoCommits
	}
	return cfg
}
