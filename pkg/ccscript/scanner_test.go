package ccscript

import "testing"

func TestScan_MinimumRecord(t *testing.T) {
	body := []byte{0xFD, 0x03, 'A', 'B', 'C', 0x00}
	records := Scan(body)
	if len(records) != 1 {
		t.Fatalf("Scan() found %d records, want 1", len(records))
	}
	r := records[0]
	if r.Position != 0 || r.Length != 3 || r.Decoded != "ABC" {
		t.Errorf("Scan() = %+v, want {Position:0 Length:3 Decoded:ABC}", r)
	}
	if r.End() != len(body) {
		t.Errorf("End() = %d, want %d", r.End(), len(body))
	}
}

func TestScan_MultipleRecordsInOrder(t *testing.T) {
	body := append([]byte{0x07, 0x02, 0x03}, []byte{0xFD, 0x01, 'A', 0x00, 0x11, 0xFD, 0x02, 'B', 'C', 0x00}...)
	records := Scan(body)
	if len(records) != 2 {
		t.Fatalf("Scan() found %d records, want 2", len(records))
	}
	if records[0].Decoded != "A" || records[1].Decoded != "BC" {
		t.Errorf("records = %+v", records)
	}
}

func TestScan_RejectsZeroLength(t *testing.T) {
	body := []byte{0xFD, 0x00, 0x00}
	if got := Scan(body); len(got) != 0 {
		t.Errorf("Scan() = %v, want no records", got)
	}
}

func TestScan_RejectsMissingTerminator(t *testing.T) {
	body := []byte{0xFD, 0x02, 'A', 'B', 0x01}
	if got := Scan(body); len(got) != 0 {
		t.Errorf("Scan() = %v, want no records", got)
	}
}

func TestScan_RejectsEmbeddedNUL(t *testing.T) {
	// len 2, terminator present at pos+2+len, but the text itself contains
	// a 0x00 byte before the terminator.
	body := []byte{0xFD, 0x02, 0x81, 0x00, 0x00}
	if got := Scan(body); len(got) != 0 {
		t.Errorf("Scan() = %v, want no records (embedded NUL)", got)
	}
}

func TestScan_RejectsUnmatchedLeadByte(t *testing.T) {
	body := []byte{0xFD, 0x01, 0x81, 0x00}
	if got := Scan(body); len(got) != 0 {
		t.Errorf("Scan() = %v, want no records (unmatched lead byte)", got)
	}
}

func TestScan_RejectsSpecificOpcodePayload(t *testing.T) {
	body := []byte{0xFD, 0x03, 0x12, 0xFB, 0x01, 0x00}
	if got := Scan(body); len(got) != 0 {
		t.Errorf("Scan() = %v, want no records (12 FB 01 payload)", got)
	}
}

func TestScan_NonResynchronizingOnRejection(t *testing.T) {
	// After a rejected 0xFD at position 0, the scanner must not skip past
	// the rejected candidate's body; it should find the real record that
	// starts one byte later, at the embedded 0xFD.
	body := []byte{0xFD, 0x02, 0xFD, 0x01, 'Z', 0x00}
	records := Scan(body)
	if len(records) != 1 {
		t.Fatalf("Scan() found %d records, want 1", len(records))
	}
	if records[0].Position != 2 {
		t.Errorf("Scan() found record at %d, want 2", records[0].Position)
	}
}

func TestScan_Deterministic(t *testing.T) {
	body := []byte{0xFD, 0x03, 'A', 'B', 'C', 0x00, 0x10, 0xFD, 0x01, 'X', 0x00}
	first := Scan(body)
	second := Scan(body)
	if len(first) != len(second) {
		t.Fatalf("Scan() produced different lengths across runs")
	}
	for i := range first {
		if first[i].Position != second[i].Position || first[i].Length != second[i].Length {
			t.Errorf("Scan() nondeterministic at record %d", i)
		}
	}
}
