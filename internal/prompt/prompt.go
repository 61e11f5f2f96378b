// Package prompt resolves locale-aware prompt templates for the generation
// workflows. Templates are flat {{variable}} substitutions; a missing template
// or an unbound variable is an error, never a silent blank.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Prompt IDs
const (
	CharacterProfiles    = "character_profiles"
	LocationSelection    = "location_selection"
	ClipSegmentation     = "clip_segmentation"
	ScreenplayConversion = "screenplay_conversion"
	StoryboardPlan       = "storyboard_plan"
	Cinematography       = "cinematography"
	ActingDirection      = "acting_direction"
	PanelDetail          = "panel_detail"
	VoiceAnalysis        = "voice_analysis"
)

const defaultLocale = "en"

var varPattern = regexp.MustCompile(`\{\{([a-z_]+)\}\}`)

// Resolver resolves prompt templates by ID and locale, falling back to the
// default locale when a localized variant does not exist.
type Resolver struct {
	templates map[string]map[string]string // locale -> promptID -> template
}

// NewResolver creates a resolver over the built-in templates.
func NewResolver() *Resolver {
	return &Resolver{templates: builtinTemplates}
}

// Template returns the raw template for a prompt ID and locale.
func (r *Resolver) Template(promptID, locale string) (string, error) {
	if locale == "" {
		locale = defaultLocale
	}
	if byID, ok := r.templates[locale]; ok {
		if tpl, ok := byID[promptID]; ok {
			return tpl, nil
		}
	}
	if locale != defaultLocale {
		if tpl, ok := r.templates[defaultLocale][promptID]; ok {
			return tpl, nil
		}
	}
	return "", fmt.Errorf("prompt template %q not found for locale %q", promptID, locale)
}

// Build resolves the template and substitutes variables. Every {{variable}}
// in the template must be bound.
func (r *Resolver) Build(promptID, locale string, vars map[string]string) (string, error) {
	tpl, err := r.Template(promptID, locale)
	if err != nil {
		return "", err
	}

	out := tpl
	for key, val := range vars {
		out = strings.ReplaceAll(out, "{{"+key+"}}", val)
	}

	if m := varPattern.FindString(out); m != "" {
		return "", fmt.Errorf("prompt template %q has unbound variable %s", promptID, m)
	}
	return out, nil
}
