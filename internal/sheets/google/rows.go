package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"moneytracker/internal/core"
	ports "moneytracker/internal/sheets"
)

const dateLayout = "2006-01-02 15:04:05"

// toRows renders the header and one row per transaction. Amounts are
// written as decimal numbers so the sheet can sum them.
func toRows(txs []core.Transaction) [][]interface{} {
	rows := make([][]interface{}, 0, len(txs)+1)
	header := make([]interface{}, len(ports.Header))
	for i, h := range ports.Header {
		header[i] = h
	}
	rows = append(rows, header)
	for _, tx := range txs {
		rows = append(rows, []interface{}{
			tx.ID,
			tx.Date.Format(dateLayout),
			tx.Type.String(),
			tx.Category,
			tx.Description,
			tx.Amount.Float(),
		})
	}
	return rows
}

// parseRows reads back a values matrix written by toRows. Columns are found
// by header name so reordered sheets still parse.
func parseRows(values [][]interface{}) ([]core.Transaction, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols := make(map[string]int, len(ports.Header))
	var missing []string
	for _, h := range ports.Header {
		idx := indexOf(headers, h)
		if idx == -1 {
			missing = append(missing, h)
		}
		cols[h] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	out := make([]core.Transaction, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(safeGet(row, cols["ID"])), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid id: %w", i+1, err)
		}
		date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(safeGet(row, cols["Date"])), time.Local)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid date: %w", i+1, err)
		}
		typ, err := core.ParseTransactionType(safeGet(row, cols["Type"]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		cents, ok := parseDecimalToCents(safeGet(row, cols["Amount"]))
		if !ok {
			return nil, fmt.Errorf("row %d: invalid amount %q", i+1, safeGet(row, cols["Amount"]))
		}
		out = append(out, core.Transaction{
			ID:          id,
			Amount:      core.Money{Cents: cents},
			Category:    strings.TrimSpace(safeGet(row, cols["Category"])),
			Description: strings.TrimSpace(safeGet(row, cols["Description"])),
			Date:        date,
			Type:        typ,
		})
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func parseDecimalToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return core.MoneyFromFloat(f).Cents, true
}
