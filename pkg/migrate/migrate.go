package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/cuemby/clanrelay/pkg/classifier"
	"github.com/cuemby/clanrelay/pkg/log"
	"github.com/cuemby/clanrelay/pkg/parser"
	"github.com/cuemby/clanrelay/pkg/storage"
	"github.com/cuemby/clanrelay/pkg/types"
)

// Row is one clan_logs row exported from a previous deployment
type Row struct {
	ClanName       string `json:"clan_name"`
	MemberUsername string `json:"member_username"`
	Message        string `json:"message"`
	Timestamp      any    `json:"timestamp"`
	MessageSent    Flag   `json:"message_sent"`
}

// Flag is a boolean that also accepts 0/1 and their string forms, as
// written by SQLite exports
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	switch s {
	case "null", "":
		*f = false
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid message_sent value %s", data)
	}
	*f = Flag(b)
	return nil
}

// Report summarizes an import
type Report struct {
	Rows         int
	Inserted     int
	Duplicates   int
	Skipped      int
	Checkpointed int
	ByCategory   map[types.Category]int
}

// Options controls Import
type Options struct {
	// DryRun classifies and counts rows without writing
	DryRun     bool
	Classifier *classifier.Classifier
}

// ReadExport decodes a JSON array of exported rows
func ReadExport(r io.Reader) ([]Row, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return rows, nil
}

// Import stores every row not already present, re-deriving its category
// from the message text. Rows that were already sent are checkpointed in one
// batch so the delivery worker does not replay them. Rows with unreadable
// timestamps are skipped.
func Import(store storage.Store, rows []Row, opts Options) (*Report, error) {
	logger := log.WithComponent("migrate")
	c := opts.Classifier
	if c == nil {
		c = classifier.Default()
	}

	report := &Report{Rows: len(rows), ByCategory: make(map[types.Category]int)}
	var sent []uint64

	for i, row := range rows {
		ts, err := parser.ParseTimestamp(row.Timestamp)
		if err != nil {
			report.Skipped++
			logger.Warn().Err(err).Int("row", i).Msg("Skipping row with unreadable timestamp")
			continue
		}

		event := &types.Event{
			ClanName:  row.ClanName,
			Actor:     row.MemberUsername,
			Text:      row.Message,
			Timestamp: ts,
			Category:  c.Classify(row.Message),
		}
		report.ByCategory[event.Category]++

		if opts.DryRun {
			continue
		}

		inserted, err := store.InsertIfAbsent(event)
		if err != nil {
			return report, fmt.Errorf("row %d: %w", i, err)
		}
		if !inserted {
			report.Duplicates++
			continue
		}
		report.Inserted++
		if row.MessageSent {
			sent = append(sent, event.ID)
		}
	}

	if len(sent) > 0 {
		if err := store.MarkDelivered(sent); err != nil {
			return report, fmt.Errorf("failed to checkpoint sent rows: %w", err)
		}
		report.Checkpointed = len(sent)
	}

	logger.Info().
		Int("rows", report.Rows).
		Int("inserted", report.Inserted).
		Int("duplicates", report.Duplicates).
		Int("skipped", report.Skipped).
		Int("checkpointed", report.Checkpointed).
		Bool("dry_run", opts.DryRun).
		Msg("Import complete")

	return report, nil
}
