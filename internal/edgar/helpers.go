package edgar

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	cikWidth   = 10
	dateLayout = "2006-01-02"
)

var periodPattern = regexp.MustCompile(`^CY\d{4}(Q[1-4])?$`)

// ValidateCIK checks that cik is all digits and at most ten long, and returns
// it left-padded with zeros to ten digits.
func ValidateCIK(cik string) (string, error) {
	cik = strings.TrimSpace(cik)
	if cik == "" {
		return "", invalid("central_index_key", "CIK must be a non-empty string of digits.")
	}
	for _, r := range cik {
		if r < '0' || r > '9' {
			return "", invalid("central_index_key", "CIK must contain only digits.")
		}
	}
	if len(cik) > cikWidth {
		return "", invalid("central_index_key", "CIK must be 10 digits or less.")
	}
	return strings.Repeat("0", cikWidth-len(cik)) + cik, nil
}

// QuarterFromTime returns the calendar quarter containing t, e.g. CY2024Q1.
func QuarterFromTime(t time.Time) string {
	quarter := (int(t.Month())-1)/3 + 1
	return fmt.Sprintf("CY%04dQ%d", t.Year(), quarter)
}

// QuarterFromDate is QuarterFromTime for a YYYY-MM-DD string.
func QuarterFromDate(date string) (string, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return "", invalid("period", "Invalid date format. Must be in 'YYYY-MM-DD' format.")
	}
	return QuarterFromTime(parsed), nil
}

// ValidPeriod reports whether period is an annual (CY2024) or quarterly
// (CY2024Q1) frame period.
func ValidPeriod(period string) bool {
	return periodPattern.MatchString(period)
}

// ResolvePeriod turns a frames period argument into its path form. Accepted
// values are a CY period string, a YYYY-MM-DD string, or a time.Time. A
// trailing "I" on a quarterly string marks it instantaneous.
func ResolvePeriod(period any, instantaneous bool) (string, error) {
	var resolved string
	switch value := period.(type) {
	case time.Time:
		resolved = QuarterFromTime(value)
	case *time.Time:
		if value == nil {
			return "", invalid("period", "period must be a string or datetime object.")
		}
		resolved = QuarterFromTime(*value)
	case string:
		value = strings.ToUpper(strings.TrimSpace(value))
		if trimmed, ok := strings.CutSuffix(value, "I"); ok && ValidPeriod(trimmed) && strings.Contains(trimmed, "Q") {
			value = trimmed
			instantaneous = true
		}
		if ValidPeriod(value) {
			resolved = value
			break
		}
		quarter, err := QuarterFromDate(value)
		if err != nil {
			return "", err
		}
		resolved = quarter
	default:
		return "", invalid("period", "period must be a string or datetime object.")
	}

	if instantaneous {
		resolved += "I"
	}
	return resolved, nil
}
