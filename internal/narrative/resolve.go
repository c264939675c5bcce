// Package narrative flattens a creation request into a fully populated
// prompt input and renders the service-specific prompts from it.
//
// Requests arrive in two generations of shape: the legacy flat narrative
// fields and the newer nested narrative context where every field is
// optional. Resolve reconciles both with a fixed precedence so defaulting
// logic lives in exactly one place.
package narrative

import (
	"strings"

	"github.com/hearthlight/backend/internal/model/chronicle"
)

// Built-in terminal defaults. Every resolved field bottoms out in one of
// these, so Resolve is total over arbitrary (including empty) requests.
const (
	DefaultDisplayName     = "them"
	DefaultPrimaryGoal     = "celebrate"
	DefaultWishIntensity   = "poetic"
	DefaultLiteraryStyle   = "modern literary, gently luminous, intimate"
	DefaultMetaphorDensity = "medium"
	DefaultNarratorPersona = "a quiet, observant voice"
	DefaultEmotionalStance = "tender admiration and care"
)

// DefaultEmotionalMix is the emotional palette used when a request names none.
var DefaultEmotionalMix = []string{"warm"}

// ResolvedInput is the flattened view of a creation request with every
// field filled in. It is derived fresh per request and never persisted.
type ResolvedInput struct {
	DisplayName      string
	RelationshipType string
	NarratorPersona  string
	EmotionalStance  string

	Milestone string
	LifePhase string
	Age       string
	Date      string

	Traits          []string
	BehaviorExample string

	EnvironmentMood     string
	SymbolicStyle       string
	EmotionalAtmosphere string

	RecentChallenges string
	TransitionMoment string
	ChapterTone      string

	SharedMemoryTone string
	WhyTheyMatter    string
	Notes            string

	PrimaryGoal  string
	EmotionalMix []string

	WishIntensity     string
	FutureOrientation string

	LiteraryStyle   string
	MetaphorDensity string

	Language chronicle.Language
}

// Resolve flattens req into a complete prompt input. Pure, no I/O, no
// failure mode: per logical field the structured narrative context wins,
// then the legacy flat field, then the built-in default.
func Resolve(req chronicle.CreationRequest) ResolvedInput {
	ctx := req.NarrativeContext
	if ctx == nil {
		ctx = &chronicle.NarrativeContext{}
	}

	traits := ctx.Traits
	if len(traits) == 0 {
		traits = splitTraits(req.Narrative.Traits)
	}

	return ResolvedInput{
		DisplayName: firstNonEmpty(ctx.Subject.DisplayName, req.Recipient.Name, DefaultDisplayName),
		RelationshipType: firstNonEmpty(
			ctx.RelationshipPerspective.RelationshipType,
			req.Recipient.Relationship,
		),
		NarratorPersona: firstNonEmpty(ctx.RelationshipPerspective.NarratorPersona, DefaultNarratorPersona),
		EmotionalStance: firstNonEmpty(ctx.RelationshipPerspective.EmotionalStance, DefaultEmotionalStance),

		Milestone: firstNonEmpty(ctx.Subject.Milestone, req.Occasion.Label),
		LifePhase: strings.TrimSpace(ctx.Subject.LifePhase),
		Age:       strings.TrimSpace(req.Recipient.Age),
		Date:      strings.TrimSpace(req.Occasion.Date),

		Traits: traits,
		BehaviorExample: firstNonEmpty(
			ctx.BehaviorExample,
			ctx.ConnectionSignal.BehaviorOrDynamic,
			req.Narrative.SharedMemory,
		),

		EnvironmentMood:     strings.TrimSpace(ctx.SettingMood.EnvironmentMood),
		SymbolicStyle:       strings.TrimSpace(ctx.SettingMood.SymbolicStyle),
		EmotionalAtmosphere: strings.TrimSpace(ctx.SettingMood.EmotionalAtmosphere),

		RecentChallenges: strings.TrimSpace(ctx.LifeContext.RecentChallenges),
		TransitionMoment: strings.TrimSpace(ctx.LifeContext.TransitionMoment),
		ChapterTone:      firstNonEmpty(ctx.LifeContext.ChapterTone, req.Narrative.Tone),

		SharedMemoryTone: firstNonEmpty(ctx.ConnectionSignal.SharedMemoryTone, req.Narrative.SharedMemory),
		WhyTheyMatter:    strings.TrimSpace(ctx.ConnectionSignal.WhyTheyMatter),
		Notes:            strings.TrimSpace(req.Narrative.Notes),

		PrimaryGoal:  firstNonEmpty(ctx.MessageIntent.PrimaryGoal, DefaultPrimaryGoal),
		EmotionalMix: emotionalMixOrDefault(ctx.MessageIntent.EmotionalMix),

		WishIntensity:     firstNonEmpty(ctx.ClosingStyle.WishIntensity, DefaultWishIntensity),
		FutureOrientation: strings.TrimSpace(ctx.ClosingStyle.FutureOrientation),

		LiteraryStyle:   firstNonEmpty(ctx.StyleLayer.LiteraryStyle, DefaultLiteraryStyle),
		MetaphorDensity: firstNonEmpty(ctx.StyleLayer.MetaphorDensity, DefaultMetaphorDensity),

		Language: req.Language,
	}
}

// firstNonEmpty returns the first candidate with non-blank content.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// splitTraits breaks the legacy comma-separated traits string into a list.
func splitTraits(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	traits := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			traits = append(traits, t)
		}
	}
	return traits
}

func emotionalMixOrDefault(mix []string) []string {
	cleaned := make([]string, 0, len(mix))
	for _, m := range mix {
		if t := strings.TrimSpace(m); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return append([]string(nil), DefaultEmotionalMix...)
	}
	return cleaned
}
