package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatQuiet = "quiet"
)

func defaultFormat() string {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return formatTable
	}
	return formatJSON
}

// table is a rendered list: a header row, data rows and the value printed
// per row in quiet mode (usually the id).
type table struct {
	header []string
	rows   [][]string
	ids    []string
	empty  string
}

func (a *app) resolveFormat() (string, error) {
	format := strings.ToLower(strings.TrimSpace(a.format))
	if format == "" {
		format = defaultFormat()
	}
	switch format {
	case formatTable, formatJSON, formatQuiet:
		return format, nil
	}
	return "", fmt.Errorf("invalid -format value %q", a.format)
}

// print writes v as JSON or t as a table depending on the output format.
func (a *app) print(v any, t table) error {
	format, err := a.resolveFormat()
	if err != nil {
		return err
	}
	switch format {
	case formatJSON:
		return printJSON(a.stdout, v)
	case formatQuiet:
		for _, id := range t.ids {
			if _, err := fmt.Fprintln(a.stdout, id); err != nil {
				return err
			}
		}
		return nil
	}
	if len(t.rows) == 0 && t.empty != "" {
		_, err := fmt.Fprintln(a.stdout, t.empty)
		return err
	}
	return printTable(a.stdout, t)
}

// printMessage writes a one-line confirmation, or v in JSON mode.
func (a *app) printMessage(v any, msg string) error {
	format, err := a.resolveFormat()
	if err != nil {
		return err
	}
	switch format {
	case formatJSON:
		return printJSON(a.stdout, v)
	case formatQuiet:
		return nil
	}
	if msg == "" {
		return nil
	}
	_, err = fmt.Fprintln(a.stdout, msg)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, t table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.header, "\t"))
	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = cell(c)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// cell keeps table rows on one line.
func cell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "-"
	}
	if r := []rune(s); len(r) > 60 {
		return string(r[:57]) + "..."
	}
	return s
}
