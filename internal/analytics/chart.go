package analytics

import "math"

// MinScale keeps a sparse series from collapsing the y axis.
const MinScale = 5

// ChartLayout maps series points onto a width x height canvas with a
// uniform padding.
type ChartLayout struct {
	Width   float64 `json:"width" yaml:"width"`
	Height  float64 `json:"height" yaml:"height"`
	Padding float64 `json:"padding" yaml:"padding"`
}

func DefaultLayout() ChartLayout {
	return ChartLayout{Width: 660, Height: 240, Padding: 32}
}

// X spreads n points evenly across the usable width. A single point sits
// in the centre.
func (l ChartLayout) X(i, n int) float64 {
	if n <= 1 {
		return l.Width / 2
	}
	return l.Padding + float64(i)/float64(n-1)*(l.Width-2*l.Padding)
}

// Y maps v onto the vertical axis; larger values sit higher (smaller y).
func (l ChartLayout) Y(v, maxVal int) float64 {
	if maxVal <= 0 {
		maxVal = MinScale
	}
	return l.Height - l.Padding - float64(v)/float64(maxVal)*(l.Height-2*l.Padding)
}

// MaxValue is the y scale of points: the largest created or completed
// count, floored at MinScale.
func MaxValue(points []Point) int {
	m := MinScale
	for _, p := range points {
		m = max(m, p.Created, p.Completed)
	}
	return m
}

// YTicks returns four equal steps from zero, keeping those that do not
// exceed maxVal plus one step.
func YTicks(maxVal int) []int {
	step := max(1, int(math.Ceil(float64(maxVal)/4)))
	ticks := make([]int, 0, 5)
	for i := 0; i <= 4; i++ {
		v := step * i
		if v <= maxVal+step {
			ticks = append(ticks, v)
		}
	}
	return ticks
}
