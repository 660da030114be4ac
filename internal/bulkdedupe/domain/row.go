package domain

import "strings"

// Row is one input CSV record with whitespace-trimmed keys and values.
// Keys keep their original casing; lookups try the spellings callers pass.
type Row map[string]string

// NewRow builds a Row from header and record slices, trimming both sides.
// Cells beyond the header width are dropped; empty values are kept out so
// presence checks stay simple.
func NewRow(header, record []string) Row {
	row := make(Row, len(header))
	for i, key := range header {
		key = strings.TrimSpace(key)
		if key == "" || i >= len(record) {
			continue
		}
		value := strings.TrimSpace(record[i])
		if value == "" {
			continue
		}
		row[key] = value
	}
	return row
}

// Get returns the first non-empty value among the given key spellings.
func (r Row) Get(keys ...string) string {
	for _, key := range keys {
		if v := r[key]; v != "" {
			return v
		}
	}
	return ""
}

// Phone returns the value of the phone-identifying column, trying the
// accepted spellings in order.
func (r Row) Phone() string {
	return r.Get("phoneNumber", "phonenumber", "mobile")
}

// PAN returns the pan column value.
func (r Row) PAN() string {
	return r.Get("pan")
}
