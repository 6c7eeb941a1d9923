// Package transcript converts session message sequences to and from their
// external representations: JSON, CSV and Markdown. Conversions are pure;
// committing imported messages into a store is the caller's job.
package transcript

import (
	"fmt"
	"strings"

	"github.com/anthropics/relay/internal/session"
)

// Format identifies an external transcript representation.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat converts a string into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	default:
		return "", session.NewValidationError("format", fmt.Sprintf("unsupported format %q, want json, csv or markdown", s))
	}
}

// ExportOptions tunes export output.
type ExportOptions struct {
	// Pretty indents JSON output. Ignored by other formats.
	Pretty bool
}

// Export renders messages in the given format. An empty message list renders
// a well-formed empty document, never an error.
func Export(msgs []session.Message, format Format, opts ExportOptions) ([]byte, error) {
	switch format {
	case FormatJSON:
		return exportJSON(msgs, opts.Pretty)
	case FormatCSV:
		return exportCSV(msgs)
	case FormatMarkdown:
		return exportMarkdown(msgs), nil
	default:
		return nil, session.NewValidationError("format", fmt.Sprintf("unsupported format %q", format))
	}
}

// Import parses a transcript into messages, validating every entry before
// returning any: a single malformed entry rejects the whole document with an
// error naming the offending index. Messages with a zero timestamp are
// assigned one when committed to a store. Markdown import is not supported.
func Import(data []byte, format Format) ([]session.Message, error) {
	switch format {
	case FormatJSON:
		return importJSON(data)
	case FormatCSV:
		return importCSV(data)
	case FormatMarkdown:
		return nil, session.NewValidationError("format", "markdown import is not supported")
	default:
		return nil, session.NewValidationError("format", fmt.Sprintf("unsupported format %q", format))
	}
}
