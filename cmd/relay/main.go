// Command relay is the CLI for the relay conversational gateway: chat against
// a model provider with bounded session history, and administer sessions
// through export/import, tags, metadata and archives.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
