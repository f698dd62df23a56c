package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestParseDateLayouts(t *testing.T) {
	cases := map[string]time.Time{
		"1949-01":             time.Date(1949, 1, 1, 0, 0, 0, 0, time.UTC),
		"2021-03-04":          time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC),
		"2021-03-04 05:06:07": time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC),
		"2021/03/04":          time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC),
		"03/04/2021":          time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC),
		" \"2021-03-04\" ":    time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC),
		"Mar 2021":            time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, ok := ParseDate(in)
		if !ok {
			t.Fatalf("ParseDate(%q) failed", in)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseDate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseDateRejectsNumbers(t *testing.T) {
	for _, in := range []string{"", "112", "1700000000", "3.14", "abc"} {
		if _, ok := ParseDate(in); ok {
			t.Fatalf("ParseDate(%q) should fail", in)
		}
	}
}
