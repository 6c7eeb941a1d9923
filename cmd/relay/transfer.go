package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/anthropics/relay/internal/transcript"
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session's history",
	Long:  `Export a session's messages as JSON, CSV or Markdown.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <session-id>",
	Short: "Import history into a session",
	Long: `Import messages from a JSON or CSV file into a session. The whole
file is validated before anything is committed; by default messages are
appended after any existing history.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	exportFormat string
	exportPretty bool
	exportOut    string

	importFormat    string
	importFile      string
	importOverwrite bool
)

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format: json, csv or markdown")
	exportCmd.Flags().BoolVar(&exportPretty, "pretty", false, "indent JSON output")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "write to file instead of stdout")

	importCmd.Flags().StringVarP(&importFormat, "format", "f", "json", "input format: json or csv")
	importCmd.Flags().StringVarP(&importFile, "file", "i", "", "file to read (default: stdin)")
	importCmd.Flags().BoolVar(&importOverwrite, "overwrite", false, "replace existing history instead of appending")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	format, err := transcript.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	msgs, err := store.History(args[0], 0)
	if err != nil {
		return err
	}
	data, err := transcript.Export(msgs, format, transcript.ExportOptions{Pretty: exportPretty})
	if err != nil {
		return err
	}

	if exportOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(exportOut, data, 0644); err != nil {
		return err
	}
	fmt.Printf("exported %d messages to %s\n", len(msgs), exportOut)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	format, err := transcript.ParseFormat(importFormat)
	if err != nil {
		return err
	}

	var data []byte
	if importFile == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(importFile)
	}
	if err != nil {
		return err
	}

	msgs, err := transcript.Import(data, format)
	if err != nil {
		return err
	}
	n, err := store.Import(args[0], msgs, importOverwrite)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d messages into %s\n", n, args[0])
	return saveStore(cfg, store)
}
