package storyboard

// presetCut is a template-defined slot. A nil duration means the slot shares
// the time left over after all fixed slots are placed.
type presetCut struct {
	DurationSec        *float64
	Description        string
	IsImagePlaceholder bool
}

// Template describes one duration-allocation policy. PresetCuts drives the
// fixed+variable policy, WeightDistribution the template-weighted one; when
// both are nil the total is split uniformly across the requested cut count.
type Template struct {
	ID                 string
	Label              string
	Description        string
	PresetCuts         []presetCut
	WeightDistribution []float64
}

func floatPtr(v float64) *float64 { return &v }

var templates = map[string]Template{
	"none": {
		ID:          "none",
		Label:       "No template",
		Description: "Distribute cuts evenly",
	},
	"image_unbind": {
		ID:          "image_unbind",
		Label:       "Image start (unbind)",
		Description: "Start from the attached image and jump into the scene after 0.3s",
		PresetCuts: []presetCut{
			{
				DurationSec:        floatPtr(0.3),
				Description:        "[Attached image]",
				IsImagePlaceholder: true,
			},
			{
				Description: "Jump into the world where this image was taken. The scene begins to move and unfold naturally.",
			},
		},
	},
	"opening_heavy": {
		ID:                 "opening_heavy",
		Label:              "Opening heavy",
		Description:        "Give the opening cut 40% of the total duration",
		WeightDistribution: []float64{0.4, 0.3, 0.3},
	},
	"climax_heavy": {
		ID:                 "climax_heavy",
		Label:              "Climax heavy",
		Description:        "Give the final cut 40% of the total duration",
		WeightDistribution: []float64{0.3, 0.3, 0.4},
	},
}

// TemplateByID resolves a template, falling back to "none" for unknown ids.
func TemplateByID(id string) Template {
	if t, ok := templates[id]; ok {
		return t
	}
	return templates["none"]
}

// TemplateIDs lists the known template ids in a stable order.
func TemplateIDs() []string {
	return []string{"none", "image_unbind", "opening_heavy", "climax_heavy"}
}
