package canonical

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"!!!", ""},
		{"Michelin", "michelin"},
		{"Bridge Stone!!", "bridge-stone"},
		{"  bridge-stone  ", "bridge-stone"},
		{"Pilot Sport 4S", "pilot-sport-4s"},
		{"--A__B--", "a-b"},
		{"225/45 R17 94W", "225-45-r17-94w"},
		{"Škoda Ćevapi", "škoda-ćevapi"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeSameSlugForSpellingVariants(t *testing.T) {
	if Normalize("Bridge Stone!!") != Normalize("  bridge-stone  ") {
		t.Errorf("expected equal slugs, got %q and %q", Normalize("Bridge Stone!!"), Normalize("  bridge-stone  "))
	}
}

func TestNormalizeTruncates(t *testing.T) {
	got := Normalize(strings.Repeat("ab ", 100))
	if n := utf8.RuneCountInString(got); n > MaxSlugLength {
		t.Errorf("expected at most %d runes, got %d", MaxSlugLength, n)
	}
	if strings.HasSuffix(got, "-") || strings.HasPrefix(got, "-") {
		t.Errorf("slug has dangling hyphen: %q", got)
	}

	long := Normalize(strings.Repeat("x", 500))
	if len(long) != MaxSlugLength {
		t.Errorf("expected %d chars, got %d", MaxSlugLength, len(long))
	}
}
