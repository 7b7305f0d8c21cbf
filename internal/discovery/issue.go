package discovery

import "fmt"

// IssueCursor walks candidate issue codes for one publication. It is a plain
// value; Next returns the advanced cursor and never mutates the receiver, so
// iteration state stays local to the discovery loop.
type IssueCursor struct {
	Year  int
	Month int
	// Step is the month increment between issues: 2 for bimonthly guide
	// publications, 1 for monthly magazines.
	Step int
}

// NewCursor builds a cursor starting at the given year and month. Bimonthly
// publications publish on odd-aligned months, so the start month is aligned
// down when needed.
func NewCursor(year, month int, bimonthly bool) IssueCursor {
	step := 1
	if bimonthly {
		step = 2
		if month%2 == 0 {
			month--
		}
	}
	if month < 1 {
		month = 1
	}
	if month > 12 {
		month = 12
	}
	return IssueCursor{Year: year, Month: month, Step: step}
}

// Code renders the cursor position as a YYYYMM issue tag.
func (c IssueCursor) Code() string {
	return fmt.Sprintf("%04d%02d", c.Year, c.Month)
}

// Next returns the cursor advanced by one issue, rolling the year over past
// December.
func (c IssueCursor) Next() IssueCursor {
	month := c.Month + c.Step
	year := c.Year
	for month > 12 {
		month -= 12
		year++
	}
	return IssueCursor{Year: year, Month: month, Step: c.Step}
}
