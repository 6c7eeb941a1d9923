package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Manage session tags",
}

var tagsAddCmd = &cobra.Command{
	Use:   "add <session-id> <tag>...",
	Short: "Add tags to a session",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTagsAdd,
}

var tagsRmCmd = &cobra.Command{
	Use:   "rm <session-id> <tag>...",
	Short: "Remove tags from a session",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTagsRm,
}

var tagsListCmd = &cobra.Command{
	Use:   "list <session-id>",
	Short: "Show a session's tags",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsList,
}

var tagsFindCmd = &cobra.Command{
	Use:   "find <tag>",
	Short: "Find sessions carrying a tag",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagsFind,
}

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Manage session metadata",
}

var metaSetCmd = &cobra.Command{
	Use:   "set <session-id> <key=value>...",
	Short: "Set metadata on a session",
	Long: `Set key/value metadata on a session. Values parse as JSON when
possible ('42', 'true', '{"a":1}') and fall back to plain strings.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runMetaSet,
}

var metaRmCmd = &cobra.Command{
	Use:   "rm <session-id> [key]...",
	Short: "Delete metadata keys, or all metadata with no keys",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMetaRm,
}

var metaListCmd = &cobra.Command{
	Use:   "list <session-id>",
	Short: "Show a session's metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runMetaList,
}

var metaFindCmd = &cobra.Command{
	Use:   "find <key=value>...",
	Short: "Find sessions whose metadata matches every pair",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMetaFind,
}

func init() {
	tagsCmd.AddCommand(tagsAddCmd, tagsRmCmd, tagsListCmd, tagsFindCmd)
	metaCmd.AddCommand(metaSetCmd, metaRmCmd, metaListCmd, metaFindCmd)
}

func runTagsAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	tags, err := store.AddTags(args[0], args[1:]...)
	if err != nil {
		return err
	}
	fmt.Printf("%s: [%s]\n", args[0], strings.Join(tags, ", "))
	return saveStore(cfg, store)
}

func runTagsRm(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	tags, err := store.RemoveTags(args[0], args[1:]...)
	if err != nil {
		return err
	}
	fmt.Printf("%s: [%s]\n", args[0], strings.Join(tags, ", "))
	return saveStore(cfg, store)
}

func runTagsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	tags, err := store.Tags(args[0])
	if err != nil {
		return err
	}
	for _, tag := range tags {
		fmt.Println(tag)
	}
	return nil
}

func runTagsFind(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	for _, id := range store.FindByTag(args[0]) {
		fmt.Println(id)
	}
	return nil
}

// parsePairs converts key=value args into a metadata map. Values that parse
// as JSON keep their JSON type.
func parsePairs(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid pair %q: want key=value", arg)
		}
		var v any
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			v = value
		}
		out[key] = v
	}
	return out, nil
}

func runMetaSet(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	values, err := parsePairs(args[1:])
	if err != nil {
		return err
	}
	if err := store.SetMetadata(args[0], values); err != nil {
		return err
	}
	fmt.Printf("set %d keys on %s\n", len(values), args[0])
	return saveStore(cfg, store)
}

func runMetaRm(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	if err := store.DeleteMetadata(args[0], args[1:]...); err != nil {
		return err
	}
	return saveStore(cfg, store)
}

func runMetaList(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	meta, err := store.Metadata(args[0])
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runMetaFind(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	filters, err := parsePairs(args)
	if err != nil {
		return err
	}
	for _, id := range store.SearchMetadata(filters) {
		fmt.Println(id)
	}
	return nil
}
