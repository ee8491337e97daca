package ccscript

import "golang.org/x/text/encoding/japanese"

// ScanStart is the offset within Container.Body where scanning begins.
// Records only ever appear in the body, offset 0x18 of a raw script file;
// Container already splits the 0x18-byte header out into its own field, so
// the equivalent offset within Body alone is 0.
const ScanStart = 0

// Record is a single translator-editable text record found in a
// decompressed script body.
type Record struct {
	Position int    // offset of the leading 0xFD byte within Body
	Length   int    // number of Shift-JIS text bytes (the len field)
	Text     []byte // the raw Shift-JIS text bytes
	Decoded  string // CP932 decoding of Text
}

// End returns the offset one past the record's terminating 0x00 byte.
func (r Record) End() int {
	return r.Position + 2 + r.Length + 1
}

// isLeadByte reports whether b starts a two-byte CP932 sequence.
func isLeadByte(b byte) bool {
	return (b >= 0x81 && b <= 0x9F) || (b >= 0xE0 && b <= 0xFC)
}

// rejectedPayload is the specific 3-byte sequence that otherwise matches
// the record shape but must never be treated as one.
var rejectedPayload = [3]byte{0x12, 0xFB, 0x01}

// Scan walks body left to right starting at ScanStart, applying a five-part
// validation heuristic at every 0xFD byte. On any failure the scan advances
// a single byte and continues — it does not resynchronize — which is
// intentional: the shipped scripts' known-good record sets depend on this
// exact non-resynchronizing behavior.
func Scan(body []byte) []Record {
	var records []Record
	decoder := japanese.ShiftJIS.NewDecoder()

	for pos := ScanStart; pos < len(body); {
		if body[pos] != 0xFD {
			pos++
			continue
		}

		rec, ok := validate(body, pos, decoder)
		if !ok {
			pos++
			continue
		}
		records = append(records, rec)
		pos = rec.End()
	}
	return records
}

func validate(body []byte, pos int, decoder interface{ Bytes([]byte) ([]byte, error) }) (Record, bool) {
	if pos+2 > len(body) {
		return Record{}, false
	}
	length := int(body[pos+1])
	// 1. len > 0
	if length == 0 {
		return Record{}, false
	}
	textStart := pos + 2
	termPos := textStart + length
	// 2. terminator byte must exist and be 0x00
	if termPos >= len(body) || body[termPos] != 0x00 {
		return Record{}, false
	}
	text := body[textStart:termPos]
	// 3. no embedded 0x00 in the text
	for _, b := range text {
		if b == 0x00 {
			return Record{}, false
		}
	}
	// 4. CP932 lead-byte walk must not overrun the declared length
	if !walksClean(text) {
		return Record{}, false
	}
	// 5. the specific 3-byte payload 12 FB 01 is never a text record
	if length == len(rejectedPayload) && text[0] == rejectedPayload[0] && text[1] == rejectedPayload[1] && text[2] == rejectedPayload[2] {
		return Record{}, false
	}

	decoded, err := decoder.Bytes(text)
	if err != nil {
		// Any byte sequence that survived the checks above is expected to
		// decode; a decode failure means it wasn't really text.
		return Record{}, false
	}

	return Record{
		Position: pos,
		Length:   length,
		Text:     append([]byte(nil), text...),
		Decoded:  string(decoded),
	}, true
}

// walksClean walks text under CP932 lead-byte rules and reports whether the
// walk consumes exactly len(text) bytes. If the final byte is an unmatched
// lead byte, the walk would consume one byte past the end: the game engine
// appends a 0x0A immediately after the record, and an unmatched lead byte
// would swallow it into a mojibake character.
func walksClean(text []byte) bool {
	i := 0
	for i < len(text) {
		if isLeadByte(text[i]) {
			i += 2
		} else {
			i++
		}
	}
	return i == len(text)
}
