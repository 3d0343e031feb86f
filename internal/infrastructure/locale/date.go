package locale

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISOLayout is the output layout of ParseDate.
const ISOLayout = "2006-01-02"

var monthAbbreviations = map[string]time.Month{
	"jan": time.January,
	"fev": time.February, "feb": time.February,
	"mar": time.March,
	"abr": time.April, "apr": time.April,
	"mai": time.May, "may": time.May,
	"jun": time.June,
	"jul": time.July,
	"ago": time.August, "aug": time.August,
	"set": time.September, "sep": time.September,
	"out": time.October, "oct": time.October,
	"nov": time.November,
	"dez": time.December, "dec": time.December,
}

var (
	reDayMonthAbbrYear = regexp.MustCompile(`^(\d{1,2})[/\-. ]([A-Za-z]{3})[/\-. ](\d{2})$`)
	reDayMonthYear     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	reISODate          = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[T ].*)?$`)
)

// twoDigitYearPivot: years above it belong to the 1900s.
const twoDigitYearPivot = 50

// ParseDate converts DD/MMM/YY, DD/MM/YYYY or YYYY-MM-DD into an ISO date.
// Patterns are tried in that order. Returns nil for anything else,
// including impossible dates such as 31/02/2024.
func ParseDate(value string) *string {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil
	}

	if m := reDayMonthAbbrYear.FindStringSubmatch(s); m != nil {
		month, ok := monthAbbreviations[strings.ToLower(m[2])]
		if !ok {
			return nil
		}
		yy, _ := strconv.Atoi(m[3])
		year := 2000 + yy
		if yy > twoDigitYearPivot {
			year = 1900 + yy
		}
		day, _ := strconv.Atoi(m[1])
		return buildDate(year, int(month), day)
	}

	if m := reDayMonthYear.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return buildDate(year, month, day)
	}

	if m := reISODate.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return buildDate(year, month, day)
	}

	return nil
}

func buildDate(year, month, day int) *string {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return nil
	}
	out := t.Format(ISOLayout)
	return &out
}

// FormatDate renders a time as an ISO date.
func FormatDate(t time.Time) string {
	return t.Format(ISOLayout)
}

// ToTime parses an ISO date produced by ParseDate.
func ToTime(iso string) (time.Time, bool) {
	t, err := time.Parse(ISOLayout, iso)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
