package textarchive

import "testing"

func TestBundle_ThenUnbundle(t *testing.T) {
	names := []string{"A001.txt", "A002.txt", "A003.txt"}
	texts := []string{
		"Hello, traveler.\nWelcome to the village.",
		"Hello, traveler.\nThe shop is closed today.",
		"GOTO a001_6",
	}

	blob, err := Bundle(names, texts)
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	gotNames, gotTexts, err := Unbundle(blob)
	if err != nil {
		t.Fatalf("Unbundle() error = %v", err)
	}
	if len(gotNames) != len(names) {
		t.Fatalf("Unbundle() names = %v, want %v", gotNames, names)
	}
	for i := range names {
		if gotNames[i] != names[i] {
			t.Errorf("names[%d] = %q, want %q", i, gotNames[i], names[i])
		}
		if gotTexts[i] != texts[i] {
			t.Errorf("texts[%d] = %q, want %q", i, gotTexts[i], texts[i])
		}
	}
}

func TestBundle_MismatchedLengthsIsError(t *testing.T) {
	if _, err := Bundle([]string{"a.txt", "b.txt"}, []string{"only one"}); err == nil {
		t.Errorf("Bundle() error = nil, want an error for mismatched slice lengths")
	}
}

func TestBundle_Empty(t *testing.T) {
	blob, err := Bundle(nil, nil)
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	names, texts, err := Unbundle(blob)
	if err != nil {
		t.Fatalf("Unbundle() error = %v", err)
	}
	if len(names) != 0 || len(texts) != 0 {
		t.Errorf("Unbundle() = %v, %v, want empty", names, texts)
	}
}
