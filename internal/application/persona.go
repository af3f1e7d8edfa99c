package application

import (
	"math/rand/v2"

	"telegram-file-vault/internal/infra/i18n"
)

// Mood selects the quote category prefixed to a reply.
type Mood string

const (
	MoodBan      Mood = "ban"
	MoodUnban    Mood = "unban"
	MoodError    Mood = "error"
	MoodSuccess  Mood = "success"
	MoodWarning  Mood = "warning"
	MoodInfo     Mood = "info"
	MoodGreeting Mood = "greeting"
	MoodDefault  Mood = "default"
	MoodWelcome  Mood = "welcome"
)

// Persona prefixes replies with a random line of the bot's character.
type Persona struct {
	lines *i18n.Catalog
	pick  func(n int) int
}

func NewPersona() *Persona { return &Persona{lines: i18n.Default(), pick: rand.IntN} }

// Say returns a quote for m followed by a newline. Unknown moods use MoodDefault.
func (p *Persona) Say(m Mood) string {
	q := p.lines.Lines(string(m))
	if len(q) == 0 {
		q = p.lines.Lines(string(MoodDefault))
	}
	if len(q) == 0 {
		return ""
	}
	return q[p.pick(len(q))] + "\n"
}
