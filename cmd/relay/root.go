package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/anthropics/relay/internal/archive"
	"github.com/anthropics/relay/internal/config"
	"github.com/anthropics/relay/internal/session"
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "relay - conversational gateway with session history",
	Long: `relay forwards prompts to a model provider while keeping bounded
per-session conversation history, and manages that history: listing,
export/import, tags, metadata and archives.`,
}

var flagConfigPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfigPath, "config", "c", "", "path to config file (default: ~/.relay/config.yaml)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(metaCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(configCmd)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".relay", "config.yaml")
}

func loadAppConfig() (*config.Config, error) {
	path := flagConfigPath
	if path == "" {
		path = defaultConfigPath()
	}
	return config.Load(path)
}

// openStore builds the live store and fills it from the archive file when one
// exists. The store itself is memory-only; the archive is how CLI runs hand
// session data to each other.
func openStore(cfg *config.Config) (*session.Store, error) {
	store := session.NewStore(cfg.History.MaxPerSession)
	if _, err := os.Stat(cfg.Archive.Path); os.IsNotExist(err) {
		return store, nil
	}

	a, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	if _, err := a.RestoreStore(store); err != nil {
		return nil, fmt.Errorf("restore archive: %w", err)
	}
	return store, nil
}

// saveStore snapshots the store back into the archive file.
func saveStore(cfg *config.Config, store *session.Store) error {
	dir := filepath.Dir(cfg.Archive.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	a, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.ReplaceStore(store); err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	return nil
}
