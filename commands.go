package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/wricardo/stickcarrier/game/config"
	"github.com/wricardo/stickcarrier/game/level"
	"github.com/wricardo/stickcarrier/game/session"
)

// runValidate checks the given level files, or every level in dir when none
// are given. It fails if any file is invalid.
func runValidate(out io.Writer, dir string, files []string, asJSON bool) error {
	var results []config.ValidationResult
	if len(files) == 0 {
		var err error
		results, err = config.ValidateDir(dir)
		if err != nil {
			return err
		}
	} else {
		for _, f := range files {
			results = append(results, config.ValidateFile(f))
		}
	}

	invalid := 0
	for _, r := range results {
		if !r.Valid {
			invalid++
		}
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(out, "✓ %s\n", r.File)
				continue
			}
			fmt.Fprintf(out, "✗ %s\n", r.File)
			for _, e := range r.Errors {
				fmt.Fprintf(out, "    %s\n", e)
			}
		}
		fmt.Fprintf(out, "\n%d file(s), %d invalid\n", len(results), invalid)
	}

	if invalid > 0 {
		return fmt.Errorf("%d invalid level file(s)", invalid)
	}
	return nil
}

type journalFilter struct {
	Session string
	Type    level.EventType
}

func (f journalFilter) match(e session.JournalEntry) bool {
	if f.Session != "" && e.Session != f.Session {
		return false
	}
	if f.Type != "" && e.Event.Type != f.Type {
		return false
	}
	return true
}

// runJournal prints journal entries matching filter, one per line.
func runJournal(out io.Writer, dir string, files []string, filter journalFilter) error {
	if len(files) == 0 {
		var err error
		files, err = session.JournalFiles(dir)
		if err != nil {
			return err
		}
	}

	for _, path := range files {
		err := session.ReadJournal(path, func(e session.JournalEntry) error {
			if filter.match(e) {
				fmt.Fprintln(out, formatJournalEntry(e))
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}
	return nil
}

func formatJournalEntry(e session.JournalEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s level=%s t=%.2f",
		e.At.UTC().Format("2006-01-02T15:04:05.000Z"), e.Session, e.Event.Type, e.Event.Level, e.Event.Time)
	if e.Event.Object != "" {
		fmt.Fprintf(&b, " object=%s", e.Event.Object)
	}
	if e.Event.From != "" {
		fmt.Fprintf(&b, " from=%s", e.Event.From)
	}
	if e.Event.To != "" {
		fmt.Fprintf(&b, " to=%s", e.Event.To)
	}
	if e.Event.Position != nil {
		fmt.Fprintf(&b, " pos=(%.2f,%.2f)", e.Event.Position.X, e.Event.Position.Z)
	}
	if e.Event.Type == level.EventWinFinalized {
		fmt.Fprintf(&b, " score=%d", e.Event.Score)
	}
	if e.Event.Message != "" {
		fmt.Fprintf(&b, " %q", e.Event.Message)
	}
	return b.String()
}
