package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anthropics/relay/internal/provider/gemini"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available from the configured provider",
	RunE:  runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("provider api key not configured, set RELAY_API_KEY or 'relay config set provider/api_key <key>'")
	}

	ctx := cmd.Context()
	prov, err := gemini.New(ctx, cfg.Provider.APIKey, cfg.Provider.Model)
	if err != nil {
		return err
	}
	defer prov.Close()

	names, err := prov.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
