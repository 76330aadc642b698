// Package export renders a user's content calendar as CSV or PDF.
package export

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/MediSynth-io/contentplanner/internal/models"
)

var csvHeader = []string{"Title", "Description", "Platform", "Scheduled Date", "Status"}

// WriteCSV writes a header line followed by one line per item. Item fields are
// always double-quoted with embedded quotes doubled; the header is bare.
func WriteCSV(w io.Writer, items []models.ContentItem) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(csvHeader, ",") + "\n")

	for _, item := range items {
		desc := ""
		if item.Description != nil {
			desc = *item.Description
		}
		fields := []string{
			item.Title,
			desc,
			string(item.Platform),
			item.ScheduledDate.UTC().Format(time.RFC3339),
			string(item.Status),
		}
		for i, f := range fields {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(quote(f))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
