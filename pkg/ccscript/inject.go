package ccscript

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
)

// WrapWidth is the character count at which a non-GOTO replacement line is
// wrapped. Public documentation for the original engine quotes 52; observed
// behavior of the shipped scripts is 53, and this is the value the injector
// uses. Exposed as a variable, not a constant, so callers can override it
// if a future script set proves the documented value correct after all.
var WrapWidth = 53

const gotoPrefix = "GOTO "

// maxRecordBytes is the largest a record's Shift-JIS text may be: the
// length field is a single byte, and the container format has no way to
// represent a record longer than 255 encoded bytes.
const maxRecordBytes = 0xFF

// ErrMismatch is returned when a translator file's line count does not
// equal the source script's record count.
var ErrMismatch = errors.New("ccscript: replacement line count does not match record count")

// ErrLostAnchor is returned when a record's original bytes cannot be found
// at or after the rewrite cursor.
var ErrLostAnchor = errors.New("ccscript: original record bytes not found at or after cursor")

// Outcome is the tri-state result of Inject: Fail (Err set, Container zero
// value), Success (Err nil, Partial false), or Partial (Err nil, Partial
// true, some records kept their original Japanese bytes).
type Outcome struct {
	Container      Container
	Partial        bool
	SkippedRecords int
	OverflowBytes  int
	Err            error
}

// SplitTranslatorText turns a translator text file's contents into an
// ordered replacement list: split on '\n', drop empty lines, and decode the
// '\' escape back to a literal 0x0A within each line.
func SplitTranslatorText(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		out = append(out, strings.ReplaceAll(line, "\\", "\n"))
	}
	return out
}

// wrapLine wraps s at WrapWidth characters, counting Unicode characters
// rather than bytes and only breaking at a space already present on the
// current line.
func wrapLine(s string) string {
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	width := 0
	lastSpace := -1

	for _, r := range runes {
		out = append(out, r)
		j := len(out) - 1

		if r == '\n' {
			width = 0
			lastSpace = -1
			continue
		}
		width++
		if r == ' ' {
			lastSpace = j
		}
		if width >= WrapWidth && lastSpace >= 0 {
			out[lastSpace] = '\n'
			width = j - lastSpace
			lastSpace = -1
		}
	}
	return string(out)
}

// recordChange is the old/new byte group for one record, resolved before
// any rewriting happens so the whole-body budget can be evaluated first.
type recordChange struct {
	old     []byte
	new     []byte
	skipped bool
}

// Inject builds a replacement decompressed container from c and the
// ordered replacement strings in replacements. c.Body is read but never
// mutated; the result carries its own Container.
func Inject(c Container, replacements []string) Outcome {
	records := Scan(c.Body)
	if len(replacements) != len(records) {
		return Outcome{Err: fmt.Errorf("%w: %d records, %d lines", ErrMismatch, len(records), len(replacements))}
	}

	encoder := japanese.ShiftJIS.NewEncoder()
	changes := make([]recordChange, len(records))
	length := c.DeclaredBodyLength()
	partial := false
	skipped := 0
	overflow := 0

	for i, rec := range records {
		old := c.Body[rec.Position:rec.End()]
		newBytes, oversize := encodeRecord(replacements[i], encoder)

		if oversize {
			changes[i] = recordChange{old: old, new: append([]byte(nil), old...), skipped: true}
			partial = true
			skipped++
			continue
		}

		delta := len(newBytes) - len(old)
		if length+delta > MaxBodySize {
			overflow += length + delta - MaxBodySize
			changes[i] = recordChange{old: old, new: append([]byte(nil), old...), skipped: true}
			partial = true
			skipped++
			continue
		}
		length += delta
		changes[i] = recordChange{old: old, new: newBytes}
	}

	rebuilt, err := rewrite(c.Body, changes)
	if err != nil {
		return Outcome{Err: err}
	}

	out := c
	out.SetDeclaredBodyLength(length)
	out.Body = rebuilt

	return Outcome{
		Container:      out,
		Partial:        partial,
		SkippedRecords: skipped,
		OverflowBytes:  overflow,
	}
}

// encodeRecord turns one translator line into the record's new byte group,
// detecting a leading GOTO directive and wrapping any other line. oversize
// is true when the Shift-JIS text exceeds maxRecordBytes, in which case new
// is nil and the caller must retain the original bytes.
func encodeRecord(line string, encoder *encoding.Encoder) ([]byte, bool) {
	if strings.HasPrefix(line, gotoPrefix) {
		target := strings.TrimPrefix(line, gotoPrefix)
		sjis, err := encoder.Bytes([]byte(target))
		if err != nil || len(sjis) > maxRecordBytes {
			return nil, true
		}
		out := make([]byte, 0, 4+len(sjis))
		out = append(out, 0x07, 0xFD, byte(len(sjis)))
		out = append(out, sjis...)
		out = append(out, 0x00)
		return out, false
	}

	wrapped := wrapLine(line)
	sjis, err := encoder.Bytes([]byte(wrapped))
	if err != nil || len(sjis) > maxRecordBytes {
		return nil, true
	}
	out := make([]byte, 0, 2+len(sjis)+1)
	out = append(out, 0xFD, byte(len(sjis)))
	out = append(out, sjis...)
	out = append(out, 0x00)
	return out, false
}

// rewrite replaces each change's old byte range with its new bytes, in
// order, advancing a monotonic search cursor through body so that an
// earlier record's bytes recurring later in the file are never matched
// twice.
func rewrite(body []byte, changes []recordChange) ([]byte, error) {
	out := make([]byte, 0, len(body)+len(changes)*4)
	cursor := 0
	for _, ch := range changes {
		idx := bytes.Index(body[cursor:], ch.old)
		if idx < 0 {
			return nil, ErrLostAnchor
		}
		at := cursor + idx
		out = append(out, body[cursor:at]...)
		out = append(out, ch.new...)
		cursor = at + len(ch.old)
	}
	out = append(out, body[cursor:]...)
	return out, nil
}
