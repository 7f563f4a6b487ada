package session

import "strings"

// pageSeparator is the blank line between pages in FullText
const pageSeparator = "\n\n"

// TextOf joins the page's text items with single spaces in engine order.
// Empty items are kept, so they still contribute a separator.
func TextOf(page Page) string {
	parts := make([]string, len(page.TextItems))
	for i, item := range page.TextItems {
		parts[i] = item.Str
	}
	return strings.Join(parts, " ")
}

// FullText joins TextOf of every page in page order with a blank line
func FullText(s *Session) string {
	parts := make([]string, len(s.Pages))
	for i, page := range s.Pages {
		parts[i] = TextOf(page)
	}
	return strings.Join(parts, pageSeparator)
}
