package hasher

import (
	"strings"
	"testing"
)

func TestContentHash(t *testing.T) {
	data := []byte("hello")
	full := ContentHash(data, 0)
	if len(full) != 16 {
		t.Fatalf("full hash %q: want 16 hex chars", full)
	}
	if short := ContentHash(data, 8); short != full[:8] {
		t.Errorf("truncated %q, want prefix of %q", short, full)
	}
	r, err := ContentHashReader(strings.NewReader("hello"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if r != full {
		t.Errorf("reader hash %q != %q", r, full)
	}
}

func TestFingerprintFieldBoundaries(t *testing.T) {
	a := NewFingerprint().String("ab").String("c").Key()
	b := NewFingerprint().String("a").String("bc").Key()
	if a == b {
		t.Error("length prefix should separate string fields")
	}
	if NewFingerprint().Int(1).Key() == NewFingerprint().Float(1).Key() {
		t.Error("int 1 and float 1 should differ")
	}
	if NewFingerprint().Bool(true).Key() != NewFingerprint().Bool(true).Key() {
		t.Error("fingerprint is not deterministic")
	}
}

func TestFingerprintKeyAlphabet(t *testing.T) {
	k := NewFingerprint().String("x").Key()
	if len(k) != 8 {
		t.Fatalf("key %q", k)
	}
	for _, c := range k {
		if !strings.ContainsRune(base32Alphabet, c) {
			t.Errorf("key %q contains %q", k, c)
		}
	}
}
