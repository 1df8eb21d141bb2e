package crypto

import (
	"bytes"
	"testing"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	out, err := Canonicalize(map[string]any{
		"zeta":  1,
		"alpha": "a",
		"mid":   true,
	})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"alpha":"a","mid":true,"zeta":1}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestCanonicalizeDeterministic(t *testing.T) {
	value := map[string]any{
		"nested": map[string]any{"b": 2, "a": 1},
		"list":   []any{"x", 3, false},
		"ratio":  0.25,
	}

	first, err := Canonicalize(value)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Canonicalize(value)
		if err != nil {
			t.Fatalf("canonicalize: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("non-deterministic output: %s vs %s", first, again)
		}
	}
}

func TestCanonicalizeFloats(t *testing.T) {
	out, err := Canonicalize(map[string]any{"a": 0.5, "b": 3.0, "c": float64(7)})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"a":0.5,"b":3,"c":7}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestCanonicalizeStripsNulls(t *testing.T) {
	var nilMap map[string]any
	out, err := Canonicalize(map[string]any{"keep": 1, "drop": nil, "also": nilMap})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if string(out) != `{"keep":1}` {
		t.Fatalf("nulls not stripped: %s", out)
	}
}

func TestCanonicalizeRejectsNonStringKeys(t *testing.T) {
	if _, err := Canonicalize(map[int]any{1: "x"}); err != ErrNonStringMapKey {
		t.Fatalf("expected ErrNonStringMapKey, got %v", err)
	}
}

func TestDigestAvalanche(t *testing.T) {
	a := DigestWithPrefix([]byte(`{"k":"value"}`))
	b := DigestWithPrefix([]byte(`{"k":"valuf"}`))
	if a == b {
		t.Fatal("single-byte change produced identical digest")
	}
	if len(a) != len("sha256:")+64 {
		t.Fatalf("unexpected digest form: %s", a)
	}
}
