package track

import "testing"

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Adele",
		"  ADELE  ",
		"The\tNational ",
		"sigur rós",
		"  a   lot   of    space  ",
		"",
	}

	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Adele", "adele"},
		{" adele ", "adele"},
		{"HELLO", "hello"},
		{"The  National", "the national"},
		{"\tBon\nIver\t", "bon iver"},
	}

	for _, test := range tests {
		if got := Normalize(test.in); got != test.expected {
			t.Errorf("Normalize(%q) = %q, expected %q", test.in, got, test.expected)
		}
	}
}

func TestKeyInsensitiveToCasingAndWhitespace(t *testing.T) {
	base := Key("Adele", "Hello")

	variants := [][2]string{
		{" adele ", "HELLO"},
		{"ADELE", "hello"},
		{"adele", " Hello  "},
	}

	for _, v := range variants {
		if got := Key(v[0], v[1]); got != base {
			t.Errorf("Key(%q, %q) = %s, expected same key as (Adele, Hello) %s", v[0], v[1], got, base)
		}
	}

	if other := Key("Adele", "Hello Again"); other == base {
		t.Error("distinct titles produced the same key")
	}
}

func TestKeyLength(t *testing.T) {
	// sha256 hex digest, used verbatim as the on-disk filename.
	if got := len(Key("a", "b")); got != 64 {
		t.Errorf("Key length = %d, expected 64", got)
	}
}

func TestSame(t *testing.T) {
	a := Track{Artists: []string{"Adele"}, Title: "Hello", IsPlaying: true}
	b := Track{Artists: []string{" ADELE "}, Title: "hello", IsPlaying: false}
	c := Track{Artists: []string{"Adele"}, Title: "Skyfall"}

	if !a.Same(b) {
		t.Error("expected tracks differing only in casing/whitespace/playback to be the same")
	}
	if a.Same(c) {
		t.Error("expected tracks with different titles to differ")
	}
}
