// Package doi issues and validates Digital Object Identifiers of the
// fixed form 10.<ORG>.<DEPT>/<year>.<serial>. The format is persisted
// state: it must stay stable for identifiers already issued.
package doi

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

var doiPattern = regexp.MustCompile(`^10\.([A-Za-z0-9]+)\.([A-Za-z0-9]+)/(\d{4})\.(\d{5})$`)

// maxSerial 序号段是定宽五位，超出即不可签发
const maxSerial = 99999

type Prefix struct {
	Org  string
	Dept string
}

// Format renders a DOI string; serial is zero-padded to 5 digits.
func (p Prefix) Format(year int, serial int64) string {
	return fmt.Sprintf("10.%s.%s/%d.%05d", p.Org, p.Dept, year, serial)
}

// Parse extracts (year, serial) from s, or fails with ErrMalformedDOI.
func Parse(s string) (year int, serial int64, err error) {
	m := doiPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", domain.ErrMalformedDOI, s)
	}
	year, _ = strconv.Atoi(m[3])
	serial, _ = strconv.ParseInt(m[4], 10, 64)
	return year, serial, nil
}
