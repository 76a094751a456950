package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Center    key.Binding
	AngleDown key.Binding
	AngleUp   key.Binding
	Reconnect key.Binding
	Endpoint  key.Binding
	Clear     key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("w", "up"),
			key.WithHelp("w/↑", "forward"),
		),
		Down: key.NewBinding(
			key.WithKeys("s", "down"),
			key.WithHelp("s/↓", "back"),
		),
		Left: key.NewBinding(
			key.WithKeys("a", "left"),
			key.WithHelp("a/←", "left"),
		),
		Right: key.NewBinding(
			key.WithKeys("d", "right"),
			key.WithHelp("d/→", "right"),
		),
		Center: key.NewBinding(
			key.WithKeys("c", " "),
			key.WithHelp("c/space", "center"),
		),
		AngleDown: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "angle -15°"),
		),
		AngleUp: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "angle +15°"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
		Endpoint: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit endpoint"),
		),
		Clear: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear messages"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Center, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Center},
		{k.AngleDown, k.AngleUp},
		{k.Reconnect, k.Endpoint, k.Clear},
		{k.Help, k.Quit},
	}
}
