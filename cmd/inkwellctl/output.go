package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
)

// render prints items as a table or JSON according to --output.
func render[T any](items []T, table func([]T) ([]string, [][]string)) error {
	switch outputFormat {
	case "json":
		if items == nil {
			items = []T{}
		}
		return outputJSON(items)
	case "table":
		if len(items) == 0 {
			fmt.Println("No results")
			return nil
		}
		header, rows := table(items)
		return outputTable(header, rows)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputTable(header []string, rows [][]string) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header(header)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
