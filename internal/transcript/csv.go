package transcript

import (
	"bytes"
	"encoding/csv"
	"strings"
	"time"

	"github.com/anthropics/relay/internal/session"
)

// csvTimeFormat keeps nanosecond precision so CSV round-trips preserve the
// store's strictly increasing timestamps.
const csvTimeFormat = time.RFC3339Nano

func exportCSV(msgs []session.Message) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"role", "content", "timestamp"}); err != nil {
		return nil, err
	}
	for i := range msgs {
		rec := []string{
			string(msgs[i].Role),
			msgs[i].Content,
			msgs[i].Timestamp.Format(csvTimeFormat),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func importCSV(data []byte) ([]session.Message, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, session.NewValidationError("data", "malformed CSV: "+err.Error())
	}
	if len(records) == 0 {
		return nil, session.NewValidationError("data", "missing header row")
	}

	// Map columns by header name; extra columns are ignored.
	roleCol, contentCol, tsCol := -1, -1, -1
	for i, name := range records[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "role":
			roleCol = i
		case "content":
			contentCol = i
		case "timestamp":
			tsCol = i
		}
	}
	if roleCol < 0 || contentCol < 0 {
		return nil, session.NewValidationError("data", "header must include role and content columns")
	}

	msgs := make([]session.Message, 0, len(records)-1)
	for i, rec := range records[1:] {
		if roleCol >= len(rec) || contentCol >= len(rec) {
			return nil, &session.ValidationError{Index: i, Reason: "row has fewer columns than the header"}
		}
		role, err := session.ParseRole(rec[roleCol])
		if err != nil {
			return nil, &session.ValidationError{Field: "role", Index: i, Reason: "must be one of user, assistant, system"}
		}
		content := rec[contentCol]
		if content == "" && role != session.RoleSystem {
			return nil, &session.ValidationError{Field: "content", Index: i, Reason: "must not be empty"}
		}
		msg := session.Message{Role: role, Content: content}
		if tsCol >= 0 && tsCol < len(rec) && rec[tsCol] != "" {
			ts, err := time.Parse(csvTimeFormat, rec[tsCol])
			if err != nil {
				return nil, &session.ValidationError{Field: "timestamp", Index: i, Reason: "must be RFC 3339"}
			}
			msg.Timestamp = ts
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
