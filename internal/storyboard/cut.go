// Package storyboard turns flat or weighted cut lists into time-stamped
// segments that sum exactly to a target duration, repairs model-produced cut
// JSON, and rewrites descriptions for visual continuity.
package storyboard

import "math"

// Cut is one segment of a storyboard timeline. Indexes are 0-based and
// contiguous; start times are the running sum of preceding durations.
type Cut struct {
	Index              int      `json:"index"`
	StartSec           float64  `json:"start_sec"`
	DurationSec        float64  `json:"duration_sec"`
	Description        string   `json:"description"`
	CameraWork         string   `json:"camera_work,omitempty"`
	Characters         []string `json:"characters,omitempty"`
	IsImagePlaceholder bool     `json:"is_image_placeholder,omitempty"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Recalculate rewrites indexes and start times so every cut begins where
// its predecessor ends. Call after any duration or ordering change.
func Recalculate(cuts []Cut) {
	current := 0.0
	for i := range cuts {
		cuts[i].Index = i
		cuts[i].StartSec = round2(current)
		current += cuts[i].DurationSec
	}
}

// adjustLastCut absorbs rounding residue into the final cut so the timeline
// ends exactly at totalDurationSec (within 0.01s).
func adjustLastCut(cuts []Cut, totalDurationSec float64) {
	if len(cuts) == 0 {
		return
	}
	last := &cuts[len(cuts)-1]
	actualEnd := last.StartSec + last.DurationSec
	delta := round2(totalDurationSec - actualEnd)
	if math.Abs(delta) >= 0.01 {
		last.DurationSec = round2(last.DurationSec + delta)
	}
}

// TotalDuration sums the cut durations.
func TotalDuration(cuts []Cut) float64 {
	total := 0.0
	for _, cut := range cuts {
		total += cut.DurationSec
	}
	return round2(total)
}
