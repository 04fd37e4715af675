package util

import "testing"

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("", 7); got != 7 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("x", 7); got != 7 {
		t.Fatalf("expected default on garbage, got %d", got)
	}
	if got := ParseIntDefault("3", 7); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" XAUUSD, ,EURUSD,")
	if len(got) != 2 || got[0] != "XAUUSD" || got[1] != "EURUSD" {
		t.Fatalf("unexpected split %v", got)
	}
}
