package ccscript

import "strings"

// ExtractText renders records in source order as translator text: each
// record becomes one line, with literal 0x0A characters inside the decoded
// text rendered as the ASCII backslash so the file stays one-line-per-record.
// The result always ends in a trailing newline.
func ExtractText(records []Record) string {
	var b strings.Builder
	for _, r := range records {
		b.WriteString(strings.ReplaceAll(r.Decoded, "\n", "\\"))
		b.WriteByte('\n')
	}
	return b.String()
}
