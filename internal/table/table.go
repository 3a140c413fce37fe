// Package table renders a qr.QueryResult as an aligned, human-readable
// table for the CLI's "run" output. No ecosystem table-formatting library
// turned up anywhere in the example corpus, so this is a thin wrapper
// around the standard library's text/tabwriter.
package table

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	qr "github.com/jpmoresmau/queryrunner"
)

// WriteResult renders result's column names as a header row followed by
// every value row, tab-aligned. NULL cells print as "NULL".
func WriteResult(w io.Writer, result *qr.QueryResult) error {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(result.Names, "\t"))
	for _, row := range result.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cellText(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func cellText(v qr.Value) string {
	if !v.Valid {
		return "NULL"
	}
	switch v.Kind {
	case qr.KindBoolean:
		return fmt.Sprintf("%t", v.Bool)
	case qr.KindDecimal:
		return fmt.Sprintf("%g", v.Decimal)
	case qr.KindInteger:
		return fmt.Sprintf("%d", v.Integer)
	default:
		return v.Str
	}
}
