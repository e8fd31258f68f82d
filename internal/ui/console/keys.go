package console

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Play       key.Binding
	Stop       key.Binding
	StopAll    key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Reload     key.Binding
	ReloadAll  key.Binding
	LoadAll    key.Binding
	ClearLogs  key.Binding
	Filter     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Play:       key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "play")),
		Stop:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		StopAll:    key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "stop all")),
		VolumeUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		VolumeDown: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		ReloadAll:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reload all")),
		LoadAll:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "load all")),
		ClearLogs:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear logs")),
		Filter:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter logs")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Stop, k.VolumeUp, k.VolumeDown, k.Filter, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Play, k.Stop, k.StopAll},
		{k.VolumeUp, k.VolumeDown, k.Reload, k.ReloadAll, k.LoadAll},
		{k.ClearLogs, k.Filter, k.Help, k.Quit},
	}
}
