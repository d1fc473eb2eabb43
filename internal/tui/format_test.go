package tui

import (
	"strings"
	"testing"
)

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "R$ 0"},
		{10, "R$ 10"},
		{1234.5, "R$ 1.234,50"},
		{1234567.89, "R$ 1.234.567,89"},
		{999999, "R$ 999.999"},
		{-1500.25, "-R$ 1.500,25"},
	}
	for _, tc := range cases {
		if got := formatBRL(tc.in); got != tc.want {
			t.Errorf("formatBRL(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"", 0, false},
		{"1500", 1500, false},
		{"1234.50", 1234.5, false},
		{"1.234,50", 1234.5, false},
		{"R$ 2.000,00", 2000, false},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := parseDecimal(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseDecimal(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("parseDecimal(%q) = %v, %v, want %v", tc.in, got, err, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 20); got != "short" {
		t.Errorf("unexpected truncate %q", got)
	}
	got := truncate("uma oportunidade com nome muito longo", 12)
	if len([]rune(got)) > 12 || !strings.HasSuffix(got, "…") {
		t.Errorf("expected ellipsis truncation, got %q", got)
	}
}

func TestClamp(t *testing.T) {
	if clamp(5, 0, 3) != 3 || clamp(-1, 0, 3) != 0 || clamp(2, 0, 3) != 2 {
		t.Fatal("clamp bounds broken")
	}
}

func TestFitLines(t *testing.T) {
	content := "a\nb\nc\nd"
	got := fitLines(content, 2)
	if strings.Count(got, "\n") != 1 {
		t.Fatalf("expected 2 lines, got %q", got)
	}
}
