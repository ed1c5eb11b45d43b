package token

import (
	"encoding/hex"
	"testing"
)

func TestNewLengthAndEncoding(t *testing.T) {
	tok := New()
	if len(tok) != Size*2 {
		t.Fatalf("unexpected token length: %d", len(tok))
	}
	if _, err := hex.DecodeString(tok); err != nil {
		t.Fatalf("token is not hex: %v", err)
	}
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok := New()
		if seen[tok] {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[tok] = true
	}
}
