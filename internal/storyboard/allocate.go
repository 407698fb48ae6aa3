package storyboard

// CutsFromTemplate builds a timeline for the given template and total
// duration. Preset templates place their fixed slots first and share the
// leftover time equally among variable slots; weighted templates scale each
// weight by the total; otherwise the duration is split evenly across
// cutCount. The final cut absorbs any rounding residue.
func CutsFromTemplate(templateID string, totalDurationSec float64, cutCount int) []Cut {
	template := TemplateByID(templateID)

	if len(template.PresetCuts) > 0 {
		return cutsFromPresets(template.PresetCuts, totalDurationSec)
	}
	if len(template.WeightDistribution) > 0 {
		return cutsFromWeights(template.WeightDistribution, totalDurationSec)
	}
	return uniformCuts(totalDurationSec, cutCount)
}

func cutsFromPresets(presets []presetCut, totalDurationSec float64) []Cut {
	fixedSum := 0.0
	variableCount := 0
	for _, preset := range presets {
		if preset.DurationSec != nil {
			fixedSum += *preset.DurationSec
		} else {
			variableCount++
		}
	}
	variableDuration := totalDurationSec - fixedSum
	if variableDuration < 0 {
		variableDuration = 0
	}
	perVariable := 0.0
	if variableCount > 0 {
		perVariable = variableDuration / float64(variableCount)
	}

	cuts := make([]Cut, 0, len(presets))
	current := 0.0
	for i, preset := range presets {
		duration := perVariable
		if preset.DurationSec != nil {
			duration = *preset.DurationSec
		}
		cuts = append(cuts, Cut{
			Index:              i,
			StartSec:           round2(current),
			DurationSec:        round2(duration),
			Description:        preset.Description,
			CameraWork:         "static",
			IsImagePlaceholder: preset.IsImagePlaceholder,
		})
		current += duration
	}
	adjustLastCut(cuts, totalDurationSec)
	return cuts
}

func cutsFromWeights(weights []float64, totalDurationSec float64) []Cut {
	cuts := make([]Cut, 0, len(weights))
	current := 0.0
	for i, weight := range weights {
		duration := totalDurationSec * weight
		cuts = append(cuts, Cut{
			Index:       i,
			StartSec:    round2(current),
			DurationSec: round2(duration),
			CameraWork:  "static",
		})
		current += duration
	}
	adjustLastCut(cuts, totalDurationSec)
	return cuts
}

func uniformCuts(totalDurationSec float64, cutCount int) []Cut {
	if cutCount < 1 {
		cutCount = 1
	}
	perCut := totalDurationSec / float64(cutCount)
	cuts := make([]Cut, 0, cutCount)
	current := 0.0
	for i := 0; i < cutCount; i++ {
		cuts = append(cuts, Cut{
			Index:       i,
			StartSec:    round2(current),
			DurationSec: round2(perCut),
			CameraWork:  "static",
		})
		current += perCut
	}
	adjustLastCut(cuts, totalDurationSec)
	return cuts
}

// ApplyModelDurations overwrites the timeline with model-provided durations.
// If their sum drifts from the target by 0.2s or more, every duration is
// rescaled by target/sum first; exact equality is then forced by adjusting
// only the final cut. Extra durations are ignored; missing ones leave the
// existing value in place.
func ApplyModelDurations(cuts []Cut, durations []float64, totalDurationSec float64) {
	if len(cuts) == 0 {
		return
	}
	for i := range cuts {
		if i < len(durations) && durations[i] > 0 {
			cuts[i].DurationSec = durations[i]
		}
	}

	sum := 0.0
	for _, cut := range cuts {
		sum += cut.DurationSec
	}
	if sum > 0 && diffAbs(sum, totalDurationSec) >= 0.2 {
		scale := totalDurationSec / sum
		for i := range cuts {
			cuts[i].DurationSec = round2(cuts[i].DurationSec * scale)
		}
	} else {
		for i := range cuts {
			cuts[i].DurationSec = round2(cuts[i].DurationSec)
		}
	}

	Recalculate(cuts)
	adjustLastCut(cuts, totalDurationSec)
}

func diffAbs(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
