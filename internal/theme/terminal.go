package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/latestcomment/lexarena/internal/models"
)

// Terminal is the courtroom palette for the terminal view. The transcript
// role colours follow the web page: sky for the user, amber for the judge,
// rose for other agents, faint italics for system notices.
type Terminal struct {
	Text       lipgloss.Color
	Faint      lipgloss.Color
	Border     lipgloss.Color
	Header     lipgloss.Color
	Accent     lipgloss.Color
	Background lipgloss.Color

	RoleYou    lipgloss.Color
	RoleJudge  lipgloss.Color
	RoleOther  lipgloss.Color
	RoleSystem lipgloss.Color
}

// TerminalFrom derives the terminal palette from the design tokens. Role
// colours are fixed accents that the tokens do not cover.
func TerminalFrom(t Tokens) Terminal {
	return Terminal{
		Text:       t.Background.Lipgloss(),
		Faint:      t.Muted.Foreground.Lipgloss(),
		Border:     lipgloss.Color("240"),
		Header:     t.Primary.Foreground.Lipgloss(),
		Accent:     HSL{198.6, 88.7, 48.4}.Lipgloss(),
		Background: t.Primary.Default.Lipgloss(),

		RoleYou:    HSL{198.4, 93.2, 59.6}.Lipgloss(),
		RoleJudge:  HSL{45.9, 96.7, 64.5}.Lipgloss(),
		RoleOther:  HSL{352.6, 95.7, 71}.Lipgloss(),
		RoleSystem: t.Muted.Foreground.Lipgloss(),
	}
}

func (p Terminal) RoleColor(role models.Role) lipgloss.Color {
	switch role {
	case models.RoleYou:
		return p.RoleYou
	case models.RoleJudge:
		return p.RoleJudge
	case models.RoleSystem:
		return p.RoleSystem
	default:
		return p.RoleOther
	}
}
