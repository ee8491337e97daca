package ccscript

import "testing"

func TestExtractText_OneLinePerRecord(t *testing.T) {
	records := []Record{
		{Position: 0, Length: 3, Decoded: "ABC"},
		{Position: 10, Length: 2, Decoded: "XY"},
	}
	got := ExtractText(records)
	want := "ABC\nXY\n"
	if got != want {
		t.Errorf("ExtractText() = %q, want %q", got, want)
	}
}

func TestExtractText_EscapesEmbeddedNewline(t *testing.T) {
	records := []Record{{Decoded: "line one\nline two"}}
	got := ExtractText(records)
	want := "line one\\line two\n"
	if got != want {
		t.Errorf("ExtractText() = %q, want %q", got, want)
	}
}

func TestExtractText_Empty(t *testing.T) {
	if got := ExtractText(nil); got != "" {
		t.Errorf("ExtractText(nil) = %q, want empty", got)
	}
}
