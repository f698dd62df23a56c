package util

import "testing"

func TestParseFloat(t *testing.T) {
	cases := map[string]float64{
		"1.5":         1.5,
		" -2 ":        -2,
		`"3"`:         3,
		` "4.25" `:    4.25,
		"\t\"1e3\"\n": 1000,
	}
	for in, want := range cases {
		got, ok := ParseFloat(in)
		if !ok || got != want {
			t.Errorf("ParseFloat(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "NA", " nan ", `"null"`, "Inf", "abc"} {
		if _, ok := ParseFloat(in); ok {
			t.Errorf("ParseFloat(%q) should fail", in)
		}
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("12", 3); got != 12 {
		t.Errorf("got %d, want 12", got)
	}
	if got := ParseIntDefault("x", 3); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}
