package prompttext

import (
	"fmt"
	"strings"
)

type styleVocabulary struct {
	materials []string
	lighting  []string
	vfx       []string
	detail    []string
}

var styleVocabularies = map[string]styleVocabulary{
	"cyberpunk": {
		materials: []string{"brushed metal", "titanium inlays", "carbon-fiber", "chromed edges", "micro-etched steel", "polymer plates"},
		lighting:  []string{"neon rim-light", "cyan underglow", "magenta accent light", "dynamic LED seams", "HUD glow", "soft holographic glow"},
		vfx:       []string{"holographic flicker", "pixel shimmer", "AR overlay", "scanline sheen", "volumetric haze"},
		detail:    []string{"micro-circuit veins", "fiber-optic threads", "embedded sensors", "heat vents", "panel seams", "thin cabling"},
	},
	"noir": {
		materials: []string{"matte enamel", "lacquered wood", "worn steel", "velvet texture"},
		lighting:  []string{"hard rim-light", "moody backlight", "rain-soaked reflections", "venetian blind shadows"},
		vfx:       []string{"film grain", "soft bloom", "cigarette smoke wisps"},
		detail:    []string{"sleek rivets", "aged patina", "subtle scratches"},
	},
	"scifi": {
		materials: []string{"brushed alloy", "ceramic composite", "graphene panels", "satin titanium"},
		lighting:  []string{"cool rim-light", "ambient panel glow", "bioluminescent accents"},
		vfx:       []string{"force-field shimmer", "ionized haze", "specular flares"},
		detail:    []string{"hex-mesh patterns", "micro-actuators", "servo joints"},
	},
	"vaporwave": {
		materials: []string{"pastel plastic", "glossy acrylic", "pearlescent enamel"},
		lighting:  []string{"pink-cyan gradient glow", "retro grid light", "soft bloom"},
		vfx:       []string{"CRT scanlines", "pixel dust", "checkerboard reflections"},
		detail:    []string{"chrome trims", "90s decals", "retro stickers"},
	},
	"generic": {
		materials: []string{"brushed metal", "ceramic-metal composite", "polished steel"},
		lighting:  []string{"edge underglow", "accent rim-light", "soft backlight"},
		vfx:       []string{"subtle holographic shimmer", "fine grain", "soft bloom"},
		detail:    []string{"micro-engraving", "thin inlays", "fiber threads"},
	},
}

var cueTemplates = []func(anchor, materials, lighting, vfx, detail string) string{
	func(a, m, l, _, _ string) string {
		return fmt.Sprintf("%s with %s accents and %s", a, m, l)
	},
	func(a, _, _, v, d string) string {
		return fmt.Sprintf("%s featuring %s and a hint of %s", a, d, v)
	},
	func(a, m, l, _, _ string) string {
		return fmt.Sprintf("part of the %s converted to %s with %s", a, m, l)
	},
	func(a, _, _, v, d string) string {
		return fmt.Sprintf("%s showing %s beneath the surface and subtle %s", a, d, v)
	},
	func(a, m, l, _, _ string) string {
		return fmt.Sprintf("%s integrating %s inlays and %s", a, m, l)
	},
}

// ClassifyStyle picks the vocabulary bucket by matching keywords against the
// preset label and guidance text, case-insensitively.
func ClassifyStyle(presetLabel, guidance string) string {
	return classifyStyle(presetLabel, guidance)
}

func classifyStyle(presetLabel, guidance string) string {
	keys := []string{strings.ToLower(presetLabel), strings.ToLower(guidance)}
	contains := func(sub string) bool {
		return strings.Contains(keys[0], sub) || strings.Contains(keys[1], sub)
	}
	equalsAny := func(values ...string) bool {
		for _, k := range keys {
			for _, v := range values {
				if k == v {
					return true
				}
			}
		}
		return false
	}

	switch {
	case contains("cyber"):
		return "cyberpunk"
	case contains("noir"):
		return "noir"
	case equalsAny("sci-fi", "scifi", "science fiction"):
		return "scifi"
	case contains("vapor"):
		return "vaporwave"
	default:
		return "generic"
	}
}

// GenerateHybridCues blends each anchor term with style vocabulary, cycling
// through the five templates and each vocabulary list by anchor position.
// Returns at most maxItems cues; an empty anchor list yields nil.
func GenerateHybridCues(anchors []string, presetLabel, guidance string, maxItems int) []string {
	if len(anchors) == 0 || maxItems <= 0 {
		return nil
	}

	lex := styleVocabularies[classifyStyle(presetLabel, guidance)]
	cues := make([]string, 0, maxItems)
	for i, anchor := range anchors {
		if len(cues) >= maxItems {
			break
		}
		render := cueTemplates[i%len(cueTemplates)]
		cues = append(cues, render(
			anchor,
			lex.materials[i%len(lex.materials)],
			lex.lighting[i%len(lex.lighting)],
			lex.vfx[i%len(lex.vfx)],
			lex.detail[i%len(lex.detail)],
		))
	}
	return cues
}
