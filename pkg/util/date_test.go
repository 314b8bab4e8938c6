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
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	for _, s := range []string{strconv.FormatInt(ts.Unix(), 10), strconv.FormatInt(ts.UnixMilli(), 10)} {
		got, ok := ParseTime(s)
		if !ok {
			t.Fatalf("expected ok for %s", s)
		}
		if !got.Equal(ts) {
			t.Fatalf("unexpected time %v for %s", got, s)
		}
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	if got := ParseTimeDefault("", def); !got.Equal(def) {
		t.Fatalf("expected default")
	}
	if got := ParseTimeDefault("yesterday", def); !got.Equal(def) {
		t.Fatalf("expected default for garbage")
	}
}

func TestParseFloat(t *testing.T) {
	if got, err := ParseFloat(" 12.5 "); err != nil || got != 12.5 {
		t.Fatalf("unexpected %v %v", got, err)
	}
	for _, in := range []string{"", "n/a"} {
		if _, err := ParseFloat(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestSymbol(t *testing.T) {
	if got := Symbol(" eth", "usdt"); got != "ETHUSDT" {
		t.Fatalf("unexpected %q", got)
	}
}
