package chronicle

import "time"

// Kind identifies one generated artifact of a chronicle.
type Kind string

const (
	KindProse     Kind = "prose"
	KindImage     Kind = "image"
	KindAnimation Kind = "animation"
	KindAudio     Kind = "audio"
)

// Recipient describes who the chronicle is written for.
type Recipient struct {
	Name         string `json:"name"`
	Age          string `json:"age,omitempty"`
	Relationship string `json:"relationship"`
}

// Occasion describes the moment being marked.
type Occasion struct {
	Label string `json:"label"`
	Date  string `json:"date,omitempty"`
}

// Narrative carries the legacy flat wizard fields. Newer clients send the
// richer NarrativeContext instead; both are accepted and reconciled by the
// narrative resolver.
type Narrative struct {
	Tone         string `json:"tone"`
	SharedMemory string `json:"sharedMemory,omitempty"`
	Traits       string `json:"traits,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// SubjectIdentity names the recipient as they should appear in the prose.
type SubjectIdentity struct {
	DisplayName string `json:"displayName,omitempty"`
	Archetype   string `json:"archetype,omitempty"`
	Milestone   string `json:"milestone,omitempty"`
	LifePhase   string `json:"lifePhase,omitempty"`
}

// RelationshipPerspective frames the narrator's voice toward the recipient.
type RelationshipPerspective struct {
	RelationshipType string `json:"relationshipType,omitempty"`
	NarratorPersona  string `json:"narratorPersona,omitempty"`
	EmotionalStance  string `json:"emotionalStance,omitempty"`
}

// SettingMood sketches the atmospheric backdrop of the message.
type SettingMood struct {
	EnvironmentMood     string `json:"environmentMood,omitempty"`
	SymbolicStyle       string `json:"symbolicStyle,omitempty"`
	EmotionalAtmosphere string `json:"emotionalAtmosphere,omitempty"`
}

// LifeContext captures the chapter of life the recipient is in.
type LifeContext struct {
	RecentChallenges string `json:"recentChallenges,omitempty"`
	TransitionMoment string `json:"transitionMoment,omitempty"`
	ChapterTone      string `json:"chapterTone,omitempty"`
}

// ConnectionSignal holds the lived-in detail that makes the relationship
// feel specific rather than abstract.
type ConnectionSignal struct {
	BehaviorOrDynamic string `json:"behaviorOrDynamic,omitempty"`
	SharedMemoryTone  string `json:"sharedMemoryTone,omitempty"`
	WhyTheyMatter     string `json:"whyTheyMatter,omitempty"`
}

// MessageIntent declares what the message is trying to do.
type MessageIntent struct {
	PrimaryGoal  string   `json:"primaryGoal,omitempty"`
	EmotionalMix []string `json:"emotionalMix,omitempty"`
}

// ClosingStyle shapes the final wish of the prose.
type ClosingStyle struct {
	WishIntensity     string `json:"wishIntensity,omitempty"`
	FutureOrientation string `json:"futureOrientation,omitempty"`
}

// StyleLayer selects the literary register of the generated prose.
type StyleLayer struct {
	LiteraryStyle   string `json:"literaryStyle,omitempty"`
	MetaphorDensity string `json:"metaphorDensity,omitempty"`
}

// NarrativeContext is the deeply nested, everything-optional configuration
// collected by the newer wizard flow. Any subset of fields may be present;
// absence never blocks prompt construction.
type NarrativeContext struct {
	Subject                 SubjectIdentity         `json:"subject,omitempty"`
	Traits                  []string                `json:"traits,omitempty"`
	BehaviorExample         string                  `json:"behaviorExample,omitempty"`
	RelationshipPerspective RelationshipPerspective `json:"relationshipPerspective,omitempty"`
	SettingMood             SettingMood             `json:"settingMood,omitempty"`
	LifeContext             LifeContext             `json:"lifeContext,omitempty"`
	ConnectionSignal        ConnectionSignal        `json:"connectionSignal,omitempty"`
	MessageIntent           MessageIntent           `json:"messageIntent,omitempty"`
	ClosingStyle            ClosingStyle            `json:"closingStyle,omitempty"`
	StyleLayer              StyleLayer              `json:"styleLayer,omitempty"`
}

// CreationRequest is the immutable input assembled by the wizard.
type CreationRequest struct {
	Recipient        Recipient         `json:"recipient"`
	Occasion         Occasion          `json:"occasion"`
	Narrative        Narrative         `json:"narrative"`
	NarrativeContext *NarrativeContext `json:"narrativeContext,omitempty"`
	Theme            Theme             `json:"theme"`
	Language         Language          `json:"language,omitempty"`
}

// Chronicle is the persisted, shareable record combining the creation
// request snapshot with every generated artifact. Prose is always present
// on a saved chronicle; media URLs are independently optional.
type Chronicle struct {
	ID               string            `json:"id"`
	Slug             string            `json:"slug"`
	CreatorToken     string            `json:"creatorToken,omitempty"`
	Recipient        Recipient         `json:"recipient"`
	Occasion         Occasion          `json:"occasion"`
	Narrative        Narrative         `json:"narrative"`
	NarrativeContext *NarrativeContext `json:"narrativeContext,omitempty"`
	Theme            Theme             `json:"theme"`
	Prose            string            `json:"prose"`
	ImageURL         string            `json:"imageUrl,omitempty"`
	AnimationURL     string            `json:"animationUrl,omitempty"`
	AudioURL         string            `json:"audioUrl,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// Public returns a copy safe to hand to non-owner callers: identical except
// that the creator token is stripped.
func (c Chronicle) Public() Chronicle {
	c.CreatorToken = ""
	return c
}

// ViewEvent is one append-only entry in a chronicle's view log. ViewerHash
// is a non-reversible derivation of the caller's address, never the address
// itself.
type ViewEvent struct {
	Slug       string    `json:"slug"`
	ViewerHash string    `json:"viewerHash"`
	ViewedAt   time.Time `json:"viewedAt"`
}
