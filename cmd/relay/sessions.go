package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anthropics/relay/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List, inspect and delete sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	RunE:  runSessionsList,
}

var sessionsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate session statistics",
	RunE:  runSessionsStats,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>...",
	Short: "Delete one or more sessions",
	Long: `Delete sessions entirely, including tags and metadata. With several
ids, missing sessions are reported but do not fail the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSessionsDelete,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear <session-id>",
	Short: "Clear a session's history, keeping tags and metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsClear,
}

var sessionsHistoryCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Show a session's messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsHistory,
}

var (
	listMinMessages int
	listMaxMessages int
	listSince       string
	listTag         string
	historyLimit    int
)

func init() {
	sessionsListCmd.Flags().IntVar(&listMinMessages, "min-messages", 0, "only sessions with at least this many messages")
	sessionsListCmd.Flags().IntVar(&listMaxMessages, "max-messages", 0, "only sessions with at most this many messages")
	sessionsListCmd.Flags().StringVar(&listSince, "since", "", "only sessions updated at or after this RFC 3339 time")
	sessionsListCmd.Flags().StringVar(&listTag, "tag", "", "only sessions carrying this tag")
	sessionsHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "show only the most recent N messages")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsStatsCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
	sessionsCmd.AddCommand(sessionsHistoryCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	filter := session.Filter{
		MinMessages: listMinMessages,
		MaxMessages: listMaxMessages,
		Tag:         listTag,
	}
	if listSince != "" {
		since, err := time.Parse(time.RFC3339, listSince)
		if err != nil {
			return fmt.Errorf("invalid --since value %q: want RFC 3339", listSince)
		}
		filter.Since = since
	}

	summaries := store.List(filter)
	if len(summaries) == 0 {
		fmt.Println("no sessions")
		return nil
	}
	for _, sum := range summaries {
		line := fmt.Sprintf("%s  %d messages  updated %s",
			sum.ID, sum.MessageCount, sum.UpdatedAt.Format(time.RFC3339))
		if len(sum.Tags) > 0 {
			line += "  [" + strings.Join(sum.Tags, ", ") + "]"
		}
		fmt.Println(line)
	}
	return nil
}

func runSessionsStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	stats := store.Stats()
	fmt.Printf("sessions:        %d\n", stats.TotalSessions)
	fmt.Printf("messages:        %d\n", stats.TotalMessages)
	fmt.Printf("avg per session: %.2f\n", stats.AvgMessages)
	fmt.Printf("empty sessions:  %d\n", stats.EmptySessions)
	fmt.Printf("tagged sessions: %d\n", stats.TaggedSessions)
	fmt.Printf("largest session: %d\n", stats.LargestSession)
	if !stats.LastUpdated.IsZero() {
		fmt.Printf("last updated:    %s\n", stats.LastUpdated.Format(time.RFC3339))
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	res := store.BulkDelete(args)
	for _, id := range res.Deleted {
		fmt.Printf("deleted %s\n", id)
	}
	for _, id := range res.Missing {
		fmt.Printf("not found: %s\n", id)
	}
	if len(res.Deleted) == 0 && len(res.Missing) == len(args) {
		return errors.New("no sessions deleted")
	}
	return saveStore(cfg, store)
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	if err := store.ClearHistory(args[0]); err != nil {
		return err
	}
	fmt.Printf("cleared history for %s\n", args[0])
	return saveStore(cfg, store)
}

func runSessionsHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	msgs, err := store.History(args[0], historyLimit)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		fmt.Printf("[%s] %s: %s\n", m.Timestamp.Format(time.RFC3339), m.Role, m.Content)
	}
	return nil
}
