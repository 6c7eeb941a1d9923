package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anthropics/relay/internal/gateway"
	"github.com/anthropics/relay/internal/provider/gemini"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the model in a session",
	Long: `Start an interactive chat. Each prompt is appended to the session's
history and sent to the model together with the configured context window.
Session data is loaded from and saved to the archive file.`,
	RunE: runChat,
}

var (
	chatSessionID string
	chatWindow    int
	chatOneShot   string
)

func init() {
	chatCmd.Flags().StringVarP(&chatSessionID, "session", "s", "default", "session id")
	chatCmd.Flags().IntVarP(&chatWindow, "window", "w", gateway.UseDefaultWindow, "context window in turns (0 sends no history)")
	chatCmd.Flags().StringVarP(&chatOneShot, "prompt", "p", "", "send a single prompt and exit")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	if cfg.Provider.APIKey == "" {
		return fmt.Errorf("provider api key not configured, set RELAY_API_KEY or 'relay config set provider/api_key <key>'")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	prov, err := gemini.New(ctx, cfg.Provider.APIKey, cfg.Provider.Model)
	if err != nil {
		return err
	}
	defer prov.Close()

	gw := gateway.New(store, prov, gateway.Config{
		Window:       cfg.Chat.ContextWindow,
		SystemPrompt: cfg.Chat.SystemPrompt,
	})
	opts := gateway.ChatOptions{Window: chatWindow}

	if chatOneShot != "" {
		res, err := gw.Chat(ctx, chatSessionID, chatOneShot, opts)
		if err != nil {
			return err
		}
		fmt.Println(res.Assistant.Content)
		return saveStore(cfg, store)
	}

	log.Printf("chatting in session %q with %s (%s); ctrl-d to exit", chatSessionID, prov.Name(), cfg.Provider.Model)
	if sess, err := store.Get(chatSessionID); err == nil {
		if last := sess.LastMessage(); last != nil {
			log.Printf("resuming at %d messages; last from %s at %s",
				sess.MessageCount(), last.Role, last.Timestamp.Format(time.RFC3339))
		}
	}
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		res, err := gw.Chat(ctx, chatSessionID, line, opts)
		if err != nil {
			// A failed turn keeps the user message in history; report and
			// let the conversation continue.
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		fmt.Println(res.Assistant.Content)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return saveStore(cfg, store)
}
