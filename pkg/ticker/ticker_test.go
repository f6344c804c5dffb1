package ticker

import "testing"

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := []string{"AAPL", "BRK.A", "BF-B", "X", "ABC123"}
	for _, symbol := range valid {
		if err := Validate(symbol); err != nil {
			t.Fatalf("expected %q valid: %v", symbol, err)
		}
	}

	invalid := []string{"", "aapl", "TOOLONGTICKER", ".ABC", "-X", "A B", "A;DROP"}
	for _, symbol := range invalid {
		if err := Validate(symbol); err == nil {
			t.Fatalf("expected %q invalid", symbol)
		}
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	got, err := Normalize("  brk.a ")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got != "BRK.A" {
		t.Fatalf("unexpected normalization: %q", got)
	}

	if _, err := Normalize("not a ticker"); err == nil {
		t.Fatal("expected error for unnormalizable input")
	}
}
