package http

import (
	"fmt"
	"html/template"
	"math"
	"strings"

	"moneytracker/internal/core"
)

// chartColors cycle over the categories in descending order.
var chartColors = []string{
	"#64B5F6", "#81C784", "#FFB74D", "#E57373", "#9575CD", "#4DB6AC", "#F06292",
}

// PieSlice is one category's wedge and legend entry.
type PieSlice struct {
	Category string
	Amount   string
	Percent  int
	Color    string
	Path     string
}

// PieChart is an SVG pie of the expense categories.
type PieChart struct {
	Size   int
	Slices []PieSlice
	// Full is set when one category takes the whole circle, which an arc
	// path cannot draw.
	Full bool
}

const pieSize = 240

// Empty reports whether there is nothing to draw.
func (p PieChart) Empty() bool {
	return len(p.Slices) == 0
}

// buildPieChart lays out the wedges clockwise from the 3 o'clock position.
// Sweeps come from cents so the wedges always close the circle.
func buildPieChart(stats []core.CategoryStat) PieChart {
	chart := PieChart{Size: pieSize}
	var total int64
	for _, s := range stats {
		total += s.Amount.Cents
	}
	if total <= 0 {
		return chart
	}

	r := float64(pieSize) / 2
	cx, cy := r, r
	start := 0.0
	for i, s := range stats {
		sweep := float64(s.Amount.Cents) / float64(total) * 2 * math.Pi
		slice := PieSlice{
			Category: s.Category,
			Amount:   formatMoney(s.Amount),
			Percent:  int(math.Round(s.Percentage)),
			Color:    chartColors[i%len(chartColors)],
		}
		if len(stats) == 1 {
			chart.Full = true
		} else {
			slice.Path = arcPath(cx, cy, r, start, sweep)
		}
		chart.Slices = append(chart.Slices, slice)
		start += sweep
	}
	return chart
}

func arcPath(cx, cy, r, start, sweep float64) string {
	x1 := cx + r*math.Cos(start)
	y1 := cy + r*math.Sin(start)
	x2 := cx + r*math.Cos(start+sweep)
	y2 := cy + r*math.Sin(start+sweep)
	large := 0
	if sweep > math.Pi {
		large = 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, "M%.2f,%.2f L%.2f,%.2f A%.2f,%.2f 0 %d,1 %.2f,%.2f Z",
		cx, cy, x1, y1, r, r, large, x2, y2)
	return b.String()
}

// SVG renders the chart markup. Paths are built from numbers only.
func (p PieChart) SVG() template.HTML {
	if p.Empty() {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<svg class="pie" viewBox="0 0 %d %d" width="%d" height="%d" role="img" aria-label="Expenses by category">`,
		p.Size, p.Size, p.Size, p.Size)
	if p.Full {
		r := float64(p.Size) / 2
		fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="%.2f" fill="%s"/>`, r, r, r, p.Slices[0].Color)
	} else {
		for _, s := range p.Slices {
			fmt.Fprintf(&b, `<path d="%s" fill="%s"/>`, s.Path, s.Color)
		}
	}
	b.WriteString(`</svg>`)
	return template.HTML(b.String())
}
