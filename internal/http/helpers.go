package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"moneytracker/internal/core"
)

const (
	dateInputLayout     = "2006-01-02"
	dateTimeInputLayout = "2006-01-02T15:04"
	dateDisplayLayout   = "02.01.2006"
)

var errInvalidID = errors.New("invalid transaction id")

// parseID reads a positive transaction ID from a path segment.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, s)
	}
	return id, nil
}

// parseFilter maps the chip value to a type filter. "", "ALL" mean no filter.
func parseFilter(s string) (*core.TransactionType, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil, nil
	}
	t, err := core.ParseTransactionType(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseDateInput accepts a date or a datetime-local value in local time.
// A bare date keeps the time of day of fallback.
func parseDateInput(s string, fallback time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback, nil
	}
	if t, err := time.ParseInLocation(dateTimeInputLayout, s, time.Local); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(dateInputLayout, s, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(),
		fallback.Hour(), fallback.Minute(), fallback.Second(), fallback.Nanosecond(), time.Local), nil
}

// formatMoney formats cents with a dot separator and thousands grouping,
// e.g. "1,234.50".
func formatMoney(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	s := b.String() + "." + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// formatSigned prefixes income with "+" and expense with "-".
func formatSigned(tx core.Transaction) string {
	if tx.Type == core.Expense {
		return "-" + formatMoney(tx.Amount)
	}
	return "+" + formatMoney(tx.Amount)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
