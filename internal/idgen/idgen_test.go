package idgen

import "testing"

func TestTokenLength(t *testing.T) {
	tok, err := Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if len(tok) != TokenBytes*2 {
		t.Errorf("expected length %d, got %d (%q)", TokenBytes*2, len(tok), tok)
	}
}

func TestTokenIsHex(t *testing.T) {
	tok, err := Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	for _, r := range tok {
		isHexDigit := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
		if !isHexDigit {
			t.Fatalf("non-hex character %q in token %q", r, tok)
		}
	}
}

func TestTokenUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := Token()
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = true
	}
}
