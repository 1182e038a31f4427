package doi

import (
	"errors"
	"testing"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

func TestFormatZeroPadsSerial(t *testing.T) {
	p := Prefix{Org: "ORG", Dept: "DEPT"}

	cases := []struct {
		year   int
		serial int64
		want   string
	}{
		{2026, 1, "10.ORG.DEPT/2026.00001"},
		{2026, 42, "10.ORG.DEPT/2026.00042"},
		{2027, 99999, "10.ORG.DEPT/2027.99999"},
	}
	for _, c := range cases {
		if got := p.Format(c.year, c.serial); got != c.want {
			t.Fatalf("Format(%d, %d) = %q, want %q", c.year, c.serial, got, c.want)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	p := Prefix{Org: "ORG", Dept: "DEPT"}

	for _, serial := range []int64{1, 7, 12345, 99999} {
		s := p.Format(2026, serial)
		year, got, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", s, err)
		}
		if year != 2026 || got != serial {
			t.Fatalf("Parse(%q) = (%d, %d), want (2026, %d)", s, year, got, serial)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"10.ORG.DEPT/2026.1",       // serial not zero-padded to 5
		"10.ORG.DEPT/2026.000001",  // serial too long
		"10.ORG.DEPT/26.00001",     // two-digit year
		"10.ORG/2026.00001",        // missing dept segment
		"11.ORG.DEPT/2026.00001",   // wrong directory prefix
		"10.ORG.DEPT/2026-00001",   // wrong separator
		"10.ORG.DEPT/2026.00001x",  // trailing junk
		"x10.ORG.DEPT/2026.00001",  // leading junk
		"10.OR G.DEPT/2026.00001",  // whitespace in segment
	}
	for _, s := range bad {
		if _, _, err := Parse(s); !errors.Is(err, domain.ErrMalformedDOI) {
			t.Fatalf("Parse(%q) = %v, want ErrMalformedDOI", s, err)
		}
	}
}
