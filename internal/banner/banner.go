package banner

import (
	"sessionprobe/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorPrimary).
		Bold(true)

	ascii := `
   _____                _             ____             __
  / ___/___  __________(_)___  ____  / __ \_________  / /_  ___
  \__ \/ _ \/ ___/ ___/ / __ \/ __ \/ /_/ / ___/ __ \/ __ \/ _ \
 ___/ /  __(__  |__  ) / /_/ / / / / ____/ /  / /_/ / /_/ /  __/
/____/\___/____/____/_/\____/_/ /_/_/   /_/   \____/_.___/\___/ `

	return "\n" + style.Render(ascii) + "\n"
}
