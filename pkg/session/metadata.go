package session

import (
	"sort"
	"strconv"
	"time"

	"github.com/pyhub-apps/pdfviewer-golang/pkg/engine"
)

// NotAvailable is shown for metadata fields the document leaves empty
const NotAvailable = "N/A"

// dateLayout formats metadata dates for display
const dateLayout = "2006-01-02 15:04:05 MST"

// MetadataRow is one line of the metadata table
type MetadataRow struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MetadataRows lays out md as a display table. The standard fields and
// the page count come first in a fixed order, followed by custom entries
// sorted by key.
func MetadataRows(md engine.Metadata, pageCount int) []MetadataRow {
	rows := []MetadataRow{
		{Key: "Title", Value: orNA(md.Title)},
		{Key: "Author", Value: orNA(md.Author)},
		{Key: "Subject", Value: orNA(md.Subject)},
		{Key: "Keywords", Value: orNA(md.Keywords)},
		{Key: "Creator", Value: orNA(md.Creator)},
		{Key: "Producer", Value: orNA(md.Producer)},
		{Key: "Creation Date", Value: formatDate(md.CreationDate)},
		{Key: "Modification Date", Value: formatDate(md.ModDate)},
		{Key: "PDF Version", Value: orNA(md.PDFVersion)},
		{Key: "Page Count", Value: strconv.Itoa(pageCount)},
	}

	keys := make([]string, 0, len(md.Custom))
	for k := range md.Custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, MetadataRow{Key: k, Value: orNA(md.Custom[k])})
	}
	return rows
}

func orNA(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return t.Format(dateLayout)
}
