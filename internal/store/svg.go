package store

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

const (
	svgWidth  = 640
	svgHeight = 480
)

func ExportSVG(path string, t *Trace) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteSVG(file, t)
}

// WriteSVG draws the path of the first two frame values, one polyline per
// trace. Single-value traces are drawn against time.
func WriteSVG(w io.Writer, t *Trace) error {
	xs, ys := svgPoints(t)
	if len(xs) < 2 {
		return fmt.Errorf("trace has %d samples, need at least 2", len(xs))
	}

	minX, maxX := bounds(xs)
	minY, maxY := bounds(ys)
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<text x="8" y="20" fill="#888899" font-family="monospace" font-size="14">%s</text>
<path fill="none" stroke="#00ffff" stroke-width="1.5" d="M`,
		svgWidth, svgHeight, svgWidth, svgHeight, t.Model)

	for i := range xs {
		x := (xs[i] - minX) / rangeX * svgWidth
		y := svgHeight - (ys[i]-minY)/rangeY*svgHeight
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString(`"/>
</svg>
`)

	_, err := io.WriteString(w, sb.String())
	return err
}

func svgPoints(t *Trace) ([]float64, []float64) {
	xs := make([]float64, 0, t.Len())
	ys := make([]float64, 0, t.Len())
	for i, row := range t.Values {
		switch {
		case len(row) >= 2:
			xs = append(xs, row[0])
			ys = append(ys, row[1])
		case len(row) == 1:
			xs = append(xs, t.Times[i])
			ys = append(ys, row[0])
		}
	}
	return xs, ys
}

func bounds(vals []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
