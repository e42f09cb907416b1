package analytics

import "github.com/sadopc/planr/internal/task"

type Segment struct {
	Status  task.Status `json:"status" yaml:"status"`
	Value   int         `json:"value" yaml:"value"`
	Percent float64     `json:"percent" yaml:"percent"`
}

// PieSegments turns status counts into distribution segments in status
// order. Zero counts are dropped; an empty distribution yields no segments.
func PieSegments(counts StatusCounts) []Segment {
	total := 0
	for _, s := range task.Statuses {
		if counts[s] > 0 {
			total += counts[s]
		}
	}
	segs := []Segment{}
	if total == 0 {
		return segs
	}
	for _, s := range task.Statuses {
		v := counts[s]
		if v <= 0 {
			continue
		}
		segs = append(segs, Segment{
			Status:  s,
			Value:   v,
			Percent: float64(v) / float64(total) * 100,
		})
	}
	return segs
}
