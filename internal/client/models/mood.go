package models

import "strings"

// Mood tags a diary entry.
type Mood string

const (
	MoodNeutral      Mood = "Neutral"
	MoodHappy        Mood = "Happy"
	MoodAngry        Mood = "Angry"
	MoodBored        Mood = "Bored"
	MoodCalm         Mood = "Calm"
	MoodDepressed    Mood = "Depressed"
	MoodDisappointed Mood = "Disappointed"
	MoodHumorous     Mood = "Humorous"
	MoodLonely       Mood = "Lonely"
	MoodMysterious   Mood = "Mysterious"
	MoodRomantic     Mood = "Romantic"
	MoodShameful     Mood = "Shameful"
	MoodAwful        Mood = "Awful"
	MoodSurprised    Mood = "Surprised"
	MoodSuspicious   Mood = "Suspicious"
	MoodTense        Mood = "Tense"
)

// Moods lists every mood in picker order.
var Moods = []Mood{
	MoodNeutral, MoodHappy, MoodAngry, MoodBored, MoodCalm, MoodDepressed,
	MoodDisappointed, MoodHumorous, MoodLonely, MoodMysterious, MoodRomantic,
	MoodShameful, MoodAwful, MoodSurprised, MoodSuspicious, MoodTense,
}

// ParseMood matches s case-insensitively against the known moods. Unknown or
// empty names fall back to MoodNeutral and ok=false.
func ParseMood(s string) (Mood, bool) {
	s = strings.TrimSpace(s)
	for _, m := range Moods {
		if strings.EqualFold(string(m), s) {
			return m, true
		}
	}
	return MoodNeutral, false
}

func (m Mood) String() string { return string(m) }
