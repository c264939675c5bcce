package chronicle

// Theme selects the visual identity of a chronicle.
type Theme string

const (
	ThemeGoldenWarmth  Theme = "golden-warmth"
	ThemeMidnightBloom Theme = "midnight-bloom"
	ThemeOceanCalm     Theme = "ocean-calm"
	ThemeForestDawn    Theme = "forest-dawn"
	ThemeCelestial     Theme = "celestial"
)

// DefaultTheme is used when a request names no theme or an unknown one.
const DefaultTheme = ThemeGoldenWarmth

// ThemeConfig pairs a display label with the base prompt handed to the
// image backend for that theme.
type ThemeConfig struct {
	Label       string `json:"label"`
	ImagePrompt string `json:"imagePrompt"`
}

// Themes is the fixed catalog of visual themes offered by the wizard.
var Themes = map[Theme]ThemeConfig{
	ThemeGoldenWarmth: {
		Label:       "Golden Warmth",
		ImagePrompt: "warm golden hour light, soft bokeh, autumn leaves, amber tones, cinematic depth of field, photorealistic, 8k, no people, no text",
	},
	ThemeMidnightBloom: {
		Label:       "Midnight Bloom",
		ImagePrompt: "midnight garden, moonlit flowers blooming in darkness, deep indigo and violet tones, ethereal glow, cinematic, 8k, no people, no text",
	},
	ThemeOceanCalm: {
		Label:       "Ocean Calm",
		ImagePrompt: "serene ocean at dawn, soft teal and pearl light, gentle waves, mist on water, peaceful, photorealistic, 8k, no people, no text",
	},
	ThemeForestDawn: {
		Label:       "Forest Dawn",
		ImagePrompt: "misty forest at dawn, shafts of golden light through ancient trees, emerald and gold tones, cinematic atmosphere, 8k, no people, no text",
	},
	ThemeCelestial: {
		Label:       "Celestial",
		ImagePrompt: "deep cosmos, nebula in rose gold and midnight blue, stars, vast and intimate simultaneously, cinematic space photography, 8k, no people, no text",
	},
}

// ThemeOrDefault resolves an arbitrary theme value to a catalog entry,
// falling back to DefaultTheme for unknown values.
func ThemeOrDefault(t Theme) (Theme, ThemeConfig) {
	if cfg, ok := Themes[t]; ok {
		return t, cfg
	}
	return DefaultTheme, Themes[DefaultTheme]
}

// Language selects the output language directive for generated prose.
type Language string

const (
	LanguageEnglish  Language = "en"
	LanguageSpanish  Language = "es"
	LanguageFrench   Language = "fr"
	LanguageGerman   Language = "de"
	LanguageChinese  Language = "zh"
	LanguageJapanese Language = "ja"
)

// languageNames maps a language code to the directive wording used in
// prompts. Unknown codes fall back to English.
var languageNames = map[Language]string{
	LanguageEnglish:  "English",
	LanguageSpanish:  "Spanish",
	LanguageFrench:   "French",
	LanguageGerman:   "German",
	LanguageChinese:  "Chinese",
	LanguageJapanese: "Japanese",
}

// Name returns the human-readable name of the language for prompt text.
func (l Language) Name() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return languageNames[LanguageEnglish]
}
