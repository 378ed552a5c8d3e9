package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ersonp/onto-core/internal/domain/entities"
)

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// output prints v as JSON when --json is set, otherwise calls text.
func output(v any, text func(w io.Writer)) error {
	if globalJSON {
		return printJSON(os.Stdout, v)
	}
	text(os.Stdout)
	return nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// formatValues renders a field map as "name=value" pairs in name order.
func formatValues(v entities.FieldValues) string {
	parts := make([]string, 0, len(v))
	for _, name := range v.Names() {
		parts = append(parts, fmt.Sprintf("%s=%s", name, formatValue(v[name])))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprint(val)
	}
}

// formatChange renders a change on one line. Updates show each field as
// before -> after.
func formatChange(c entities.Change) string {
	prefix := fmt.Sprintf("%-6s %s", c.Kind, c.Key())
	switch c.Kind {
	case entities.ChangeCreate:
		return prefix + " " + formatValues(c.After)
	case entities.ChangeDelete:
		return prefix
	default:
		parts := make([]string, 0, len(c.After))
		for _, name := range c.After.Names() {
			parts = append(parts, fmt.Sprintf("%s: %s -> %s", name, formatValue(c.Before[name]), formatValue(c.After[name])))
		}
		return prefix + " " + strings.Join(parts, ", ")
	}
}

func printChanges(w io.Writer, changes []entities.Change) {
	if len(changes) == 0 {
		fmt.Fprintln(w, "No changes.")
		return
	}
	for _, c := range changes {
		fmt.Fprintf(w, "  %s\n", formatChange(c))
	}
}

func formatStats(s entities.ChangeStats) string {
	return fmt.Sprintf("%d created, %d updated, %d deleted", s.Creates, s.Updates, s.Deletes)
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}
