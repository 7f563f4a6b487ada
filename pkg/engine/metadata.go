package engine

import (
	"bytes"
	"strconv"
	"strings"
	"time"
)

// standardInfoKeys are the info dictionary entries with a dedicated field
var standardInfoKeys = map[string]bool{
	"Title":        true,
	"Author":       true,
	"Subject":      true,
	"Keywords":     true,
	"Creator":      true,
	"Producer":     true,
	"CreationDate": true,
	"ModDate":      true,
	"Trapped":      true,
}

// metadataFromInfo builds Metadata from an info dictionary accessor.
// Non-standard entries are kept in Custom.
func metadataFromInfo(get func(key string) string, keys []string) Metadata {
	md := Metadata{
		Title:        get("Title"),
		Author:       get("Author"),
		Subject:      get("Subject"),
		Keywords:     get("Keywords"),
		Creator:      get("Creator"),
		Producer:     get("Producer"),
		CreationDate: parsePDFDate(get("CreationDate")),
		ModDate:      parsePDFDate(get("ModDate")),
		Trapped:      get("Trapped"),
	}

	for _, key := range keys {
		if standardInfoKeys[key] {
			continue
		}
		value := get(key)
		if value == "" {
			continue
		}
		if md.Custom == nil {
			md.Custom = make(map[string]string)
		}
		md.Custom[key] = value
	}

	return md
}

// parsePDFDate parses the PDF date format D:YYYYMMDDHHmmSSOHH'mm'.
// Every component after the year is optional. A zero time is returned
// for values that cannot be parsed.
func parsePDFDate(dateStr string) time.Time {
	s := strings.TrimSpace(dateStr)
	s = strings.TrimPrefix(s, "D:")
	if len(s) < 4 {
		return time.Time{}
	}

	// year, month, day, hour, minute, second
	fields := [6]int{0, 1, 1, 0, 0, 0}
	widths := [6]int{4, 2, 2, 2, 2, 2}
	pos := 0
	for i, w := range widths {
		if pos+w > len(s) || !isDigits(s[pos:pos+w]) {
			if i == 0 {
				return time.Time{}
			}
			break
		}
		fields[i], _ = strconv.Atoi(s[pos : pos+w])
		pos += w
	}

	loc := time.UTC
	if pos < len(s) {
		loc = parseTZ(s[pos:])
	}

	t := time.Date(fields[0], time.Month(fields[1]), fields[2], fields[3], fields[4], fields[5], 0, loc)
	if t.Month() != time.Month(fields[1]) {
		return time.Time{}
	}
	return t
}

// parseTZ parses the O HH'mm' suffix of a PDF date
func parseTZ(s string) *time.Location {
	sign := 0
	switch s[0] {
	case 'Z', 'z':
		return time.UTC
	case '+':
		sign = 1
	case '-':
		sign = -1
	default:
		return time.UTC
	}

	rest := strings.NewReplacer("'", "", ":", "").Replace(s[1:])
	var hh, mm int
	if len(rest) >= 2 && isDigits(rest[:2]) {
		hh, _ = strconv.Atoi(rest[:2])
	}
	if len(rest) >= 4 && isDigits(rest[2:4]) {
		mm, _ = strconv.Atoi(rest[2:4])
	}
	offset := sign * (hh*3600 + mm*60)
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone("", offset)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// headerVersion reads the version from the %PDF-x.y header line
func headerVersion(data []byte) string {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	i := bytes.Index(head, []byte("%PDF-"))
	if i < 0 {
		return ""
	}
	v := head[i+5:]
	end := 0
	for end < len(v) && (v[end] == '.' || (v[end] >= '0' && v[end] <= '9')) {
		end++
	}
	return string(v[:end])
}
