package export

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/sadopc/planr/internal/analytics"
)

const (
	createdColor   = "#6C63FF"
	completedColor = "#22C55E"
	gridColor      = "#E5E7EB"
	labelColor     = "#6B7280"
	maxXLabels     = 7
)

// ToSVG renders the created-vs-completed trend of r as a line chart.
func ToSVG(r analytics.Report, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create svg file: %w", err)
	}
	defer f.Close()

	if err := WriteSVG(f, r); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return f.Close()
}

func WriteSVG(out io.Writer, r analytics.Report) error {
	l := r.Layout
	if l.Width <= 0 || l.Height <= 0 {
		l = analytics.DefaultLayout()
	}
	maxVal := r.MaxValue
	if maxVal <= 0 {
		maxVal = analytics.MaxValue(r.Series)
	}
	ticks := r.YTicks
	if len(ticks) == 0 {
		ticks = analytics.YTicks(maxVal)
	}
	n := len(r.Series)

	w := bufio.NewWriter(out)
	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g" font-family="sans-serif" font-size="10">`+"\n",
		l.Width, l.Height, l.Width, l.Height)
	fmt.Fprintf(w, `<rect width="%g" height="%g" fill="#FFFFFF"/>`+"\n", l.Width, l.Height)

	for _, t := range ticks {
		y := l.Y(t, maxVal)
		fmt.Fprintf(w, `<line x1="%g" y1="%.1f" x2="%g" y2="%.1f" stroke="%s"/>`+"\n",
			l.Padding, y, l.Width-l.Padding, y, gridColor)
		fmt.Fprintf(w, `<text x="%g" y="%.1f" text-anchor="end" fill="%s">%d</text>`+"\n",
			l.Padding-6, y+3, labelColor, t)
	}

	step := max(1, int(math.Ceil(float64(n)/maxXLabels)))
	for i, p := range r.Series {
		if i%step != 0 && i != n-1 {
			continue
		}
		fmt.Fprintf(w, `<text x="%.1f" y="%g" text-anchor="middle" fill="%s">%s</text>`+"\n",
			l.X(i, n), l.Height-l.Padding/3, labelColor, escape(p.Label))
	}

	writeLine(w, r.Series, l, maxVal, createdColor, func(p analytics.Point) int { return p.Created })
	writeLine(w, r.Series, l, maxVal, completedColor, func(p analytics.Point) int { return p.Completed })

	fmt.Fprintf(w, `<text x="%g" y="%g" fill="%s">Created</text>`+"\n", l.Padding, l.Padding/2, createdColor)
	fmt.Fprintf(w, `<text x="%g" y="%g" fill="%s">Completed</text>`+"\n", l.Padding+60, l.Padding/2, completedColor)
	fmt.Fprintln(w, `</svg>`)
	return w.Flush()
}

func writeLine(w io.Writer, pts []analytics.Point, l analytics.ChartLayout, maxVal int, color string, value func(analytics.Point) int) {
	if len(pts) == 0 {
		return
	}
	coords := make([]string, len(pts))
	for i, p := range pts {
		coords[i] = fmt.Sprintf("%.1f,%.1f", l.X(i, len(pts)), l.Y(value(p), maxVal))
	}
	fmt.Fprintf(w, `<polyline points="%s" fill="none" stroke="%s" stroke-width="2"/>`+"\n", strings.Join(coords, " "), color)
	for _, c := range coords {
		x, y, _ := strings.Cut(c, ",")
		fmt.Fprintf(w, `<circle cx="%s" cy="%s" r="2.5" fill="%s"/>`+"\n", x, y, color)
	}
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
