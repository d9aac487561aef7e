package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Month is the canonical budget month: a zero-padded two-digit string
// "01".."12". Requests may carry months as bare integers or unpadded
// strings; everything is normalized to this type at the service boundary.
type Month string

// NewMonth builds a Month from a 1-12 integer.
func NewMonth(m int) (Month, error) {
	if m < 1 || m > 12 {
		return "", ErrInvalidMonth
	}
	return Month(fmt.Sprintf("%02d", m)), nil
}

// ParseMonth normalizes a month string ("3", "03") to its canonical form.
func ParseMonth(s string) (Month, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalidMonth
	}
	return NewMonth(n)
}

// Int returns the month as 1-12. Zero for an invalid Month.
func (m Month) Int() int {
	n, err := strconv.Atoi(string(m))
	if err != nil || n < 1 || n > 12 {
		return 0
	}
	return n
}

func (m Month) Validate() error {
	if len(m) != 2 || m.Int() == 0 {
		return ErrInvalidMonth
	}
	return nil
}

// ParseMonthYear parses the combined "MM-YYYY" filter token used by budget
// listing (single-digit months are accepted). The second return is false for
// malformed tokens, which callers treat as "filter not applied".
func ParseMonthYear(token string) (Month, int, bool) {
	parts := strings.SplitN(strings.TrimSpace(token), "-", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	month, err := ParseMonth(parts[0])
	if err != nil {
		return "", 0, false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || year <= 0 {
		return "", 0, false
	}
	return month, year, true
}
