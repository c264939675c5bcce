package narrative

import (
	"fmt"
	"strings"

	"github.com/hearthlight/backend/internal/model/chronicle"
)

// NegativeImagePrompt is passed alongside every visual prompt to keep
// backgrounds free of artifacts that would fight the overlaid prose.
const NegativeImagePrompt = "text, watermark, logo, low quality, people, faces, blurry, cartoon"

// BuildProsePrompt renders the literary prompt for the text model from a
// fully resolved input. Sections with no content are omitted entirely; a
// labeled header is never emitted without lines under it.
func BuildProsePrompt(in ResolvedInput) string {
	var b strings.Builder

	b.WriteString("You are an elegant literary author crafting a deeply personal, heartfelt message.\n\n")
	b.WriteString("Write a beautifully composed personal message for the following person and moment. ")
	b.WriteString("The writing should feel warm, intimate, and genuinely meaningful - not generic.\n")

	identity := []string{
		fmt.Sprintf("Recipient display name: %s", in.DisplayName),
	}
	if in.RelationshipType != "" {
		identity = append(identity, fmt.Sprintf("Relationship archetype: %s", in.RelationshipType))
	}
	if in.Age != "" {
		identity = append(identity, fmt.Sprintf("Age: %s", in.Age))
	}
	identity = append(identity, lifeContextLines(in)...)
	if len(in.Traits) > 0 {
		identity = append(identity, fmt.Sprintf("Core traits: %s.", strings.Join(in.Traits, ", ")))
	}
	writeSection(&b, "Subject identity", identity)

	perspective := []string{
		fmt.Sprintf("Narrator persona: %s", in.NarratorPersona),
		fmt.Sprintf("Emotional stance toward them: %s", in.EmotionalStance),
	}
	if in.RelationshipType != "" {
		perspective = append([]string{fmt.Sprintf("Narrator relationship: %s", in.RelationshipType)}, perspective...)
	}
	writeSection(&b, "Relationship perspective", perspective)

	var setting []string
	if in.EnvironmentMood != "" {
		setting = append(setting, fmt.Sprintf("Environment: %s.", in.EnvironmentMood))
	}
	if in.SymbolicStyle != "" {
		setting = append(setting, fmt.Sprintf("Symbolic setting style: %s.", in.SymbolicStyle))
	}
	if in.EmotionalAtmosphere != "" {
		setting = append(setting, fmt.Sprintf("Atmosphere: %s.", in.EmotionalAtmosphere))
	}
	writeSection(&b, "Setting mood", setting)

	var connection []string
	if in.BehaviorExample != "" {
		connection = append(connection, fmt.Sprintf("One small behavior or dynamic that captures the relationship: %s.", in.BehaviorExample))
	}
	if in.SharedMemoryTone != "" {
		connection = append(connection, fmt.Sprintf("Shared memory tone or moment to gently weave in: %s.", in.SharedMemoryTone))
	}
	if in.WhyTheyMatter != "" {
		connection = append(connection, fmt.Sprintf("Why they matter to the narrator: %s.", in.WhyTheyMatter))
	}
	if in.Notes != "" {
		connection = append(connection, fmt.Sprintf("Additional context: %s.", in.Notes))
	}
	writeSection(&b, "Connection signal", connection)

	intent := []string{
		fmt.Sprintf("Primary goal: %s", in.PrimaryGoal),
		fmt.Sprintf("Emotional mix: %s.", strings.Join(in.EmotionalMix, ", ")),
	}
	writeSection(&b, "Message intent", intent)

	closing := []string{
		fmt.Sprintf("Closing intensity: %s", in.WishIntensity),
	}
	if in.FutureOrientation != "" {
		closing = append(closing, fmt.Sprintf("Future orientation: %s", in.FutureOrientation))
	} else {
		closing = append(closing, "Future orientation: Offer a blessing for the chapters ahead, grounded in who they already are.")
	}
	writeSection(&b, "Closing wish style", closing)

	writeSection(&b, "Style layer", []string{
		fmt.Sprintf("Literary style: %s", in.LiteraryStyle),
		fmt.Sprintf("Metaphor density: %s", in.MetaphorDensity),
	})

	writeSection(&b, "Additional guidance", []string{
		"- Prioritize emotional specificity over plot detail.",
		"- You may gently infer connective tissue between details, but do not invent elaborate fictional events.",
		"- Weave in any mentioned traits or moments so they feel discovered inside the prose rather than listed.",
		"- Write 3-5 paragraphs of continuous prose. No titles or section headers.",
		"- Do not use clichés or generic celebration phrases.",
		"- The final paragraph should feel like a genuine, specific wish for their future in this chapter.",
		fmt.Sprintf("- Style: %s, unhurried and humane.", in.LiteraryStyle),
		"- Write in second person (you / your).",
		"- Do not include a salutation or sign-off; only the body of the message.",
		fmt.Sprintf("- Write the message in %s.", in.Language.Name()),
	})

	return strings.TrimRight(b.String(), "\n")
}

// lifeContextLines gathers the milestone and life-chapter lines shared by
// the identity section. Empty fields contribute nothing.
func lifeContextLines(in ResolvedInput) []string {
	var lines []string
	if in.Milestone != "" {
		lines = append(lines, fmt.Sprintf("Milestone or moment: %s.", in.Milestone))
	}
	if in.Date != "" {
		lines = append(lines, fmt.Sprintf("Occasion date: %s.", in.Date))
	}
	if in.LifePhase != "" {
		lines = append(lines, fmt.Sprintf("Life phase descriptor: %s.", in.LifePhase))
	}
	if in.TransitionMoment != "" {
		lines = append(lines, fmt.Sprintf("Current transition or chapter: %s.", in.TransitionMoment))
	}
	if in.RecentChallenges != "" {
		lines = append(lines, fmt.Sprintf("Recent responsibilities or challenges: %s.", in.RecentChallenges))
	}
	if in.ChapterTone != "" {
		lines = append(lines, fmt.Sprintf("Emotional tone of this chapter: %s.", in.ChapterTone))
	}
	return lines
}

// writeSection emits a "=== Title ===" block, or nothing when lines is empty.
func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\n=== %s ===\n", title)
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
}

// BuildVisualPrompt renders the image/animation prompt for a theme,
// tinted by the resolved atmosphere when one was provided.
func BuildVisualPrompt(theme chronicle.Theme, in ResolvedInput) string {
	_, cfg := chronicle.ThemeOrDefault(theme)

	parts := []string{cfg.ImagePrompt}
	if in.EnvironmentMood != "" {
		parts = append(parts, in.EnvironmentMood)
	}
	if in.EmotionalAtmosphere != "" {
		parts = append(parts, fmt.Sprintf("%s atmosphere", in.EmotionalAtmosphere))
	}
	return strings.Join(parts, ", ")
}
