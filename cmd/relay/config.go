package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage relay configuration",
	Long:  `View and modify relay configuration stored in ~/.relay/config.yaml.`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value using dot-separated or slash-separated keys.

Examples:
  relay config set provider/api_key <key>
  relay config set provider/model gemini-1.5-pro
  relay config set chat/context_window 5
  relay config set history/max_per_session 40`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
}

func configFilePath() string {
	if flagConfigPath != "" {
		return flagConfigPath
	}
	return defaultConfigPath()
}

func loadConfigMap() (map[string]any, error) {
	data, err := os.ReadFile(configFilePath())
	if os.IsNotExist(err) {
		return make(map[string]any), nil
	}
	if err != nil {
		return nil, err
	}

	var cfg map[string]any
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = make(map[string]any)
	}
	return cfg, nil
}

func saveConfigMap(cfg map[string]any) error {
	path := configFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Support both provider/api_key and provider.api_key forms.
	key = strings.ReplaceAll(key, "/", ".")
	parts := strings.Split(key, ".")

	cfg, err := loadConfigMap()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	current := cfg
	for i, part := range parts[:len(parts)-1] {
		if _, exists := current[part]; !exists {
			current[part] = make(map[string]any)
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return fmt.Errorf("cannot set nested key: %s is not a map", strings.Join(parts[:i+1], "."))
		}
		current = next
	}
	current[parts[len(parts)-1]] = parseScalar(value)

	if err := saveConfigMap(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

// parseScalar keeps int and bool values typed in the YAML output.
func parseScalar(s string) any {
	var i int
	if n, _ := fmt.Sscanf(s, "%d", &i); n == 1 && fmt.Sprintf("%d", i) == s {
		return i
	}
	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}
	return s
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path := configFilePath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Printf("No config file found at %s\n", path)
		fmt.Println("\nDefault values:")
		fmt.Println("  provider.name: gemini")
		fmt.Println("  provider.model: gemini-2.0-flash")
		fmt.Println("  history.max_per_session: 20")
		fmt.Println("  chat.context_window: 10")
		fmt.Println("  archive.path: ./data/relay.db")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	fmt.Printf("Config file: %s\n\n", path)
	fmt.Print(string(data))
	return nil
}
