package chat

// Personality selects the system prompt sent ahead of the conversation.
type Personality string

const (
	PersonalityDoudou     Personality = "Doudou"
	PersonalityTrouillard Personality = "Trouillard"
	PersonalityEnerve     Personality = "Énervé"
	PersonalityHater      Personality = "Hater"

	DefaultPersonality = PersonalityDoudou
)

var systemPrompts = map[Personality]string{
	PersonalityDoudou:     "Tu es une intelligence artificielle gentille, douce, compréhensive, rassurante.",
	PersonalityTrouillard: "Tu es une intelligence artificielle anxieuse, hésitante, qui doute tout le temps.",
	PersonalityEnerve:     "Tu es une intelligence artificielle impatiente, directe, qui n'aime pas qu'on tourne autour du pot.",
	PersonalityHater:      "Tu es une intelligence artificielle arrogante, méprisante, qui ne supporte pas la bêtise humaine.",
}

// ParsePersonality maps a client supplied name to a known personality.
// Unknown or empty names fall back to the default.
func ParsePersonality(name string) Personality {
	p := Personality(name)
	if _, ok := systemPrompts[p]; ok {
		return p
	}
	return DefaultPersonality
}

// SystemPrompt returns the prompt for p.
func (p Personality) SystemPrompt() string {
	if prompt, ok := systemPrompts[p]; ok {
		return prompt
	}
	return systemPrompts[DefaultPersonality]
}

// Personalities lists the supported personalities.
func Personalities() []Personality {
	return []Personality{PersonalityDoudou, PersonalityTrouillard, PersonalityEnerve, PersonalityHater}
}
