package app

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
)

type keyMap struct {
	Quit       key.Binding
	Follow     key.Binding
	PodNames   key.Binding
	Timestamps key.Binding
	Wrap       key.Binding
	Dark       key.Binding
	Previous   key.Binding
	Tail       key.Binding
	Since      key.Binding
	Container  key.Binding
	Highlight  key.Binding
	Filter     key.Binding
	Copy       key.Binding
	Export     key.Binding
	Pods       key.Binding
	Top        key.Binding
	Bottom     key.Binding
	Sort       key.Binding
	Select     key.Binding
	Back       key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Follow:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow")),
		PodNames:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "pod names")),
		Timestamps: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "timestamps")),
		Wrap:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "wrap")),
		Dark:       key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "dark")),
		Previous:   key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "previous")),
		Tail:       key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "tail")),
		Since:      key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "since")),
		Container:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "container")),
		Highlight:  key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "highlight")),
		Filter:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
		Export:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		Pods:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "pods")),
		Top:        key.NewBinding(key.WithKeys("g", "home")),
		Bottom:     key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Sort:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		Select:     key.NewBinding(key.WithKeys("enter")),
		Back:       key.NewBinding(key.WithKeys("esc")),
	}
}

func (k keyMap) help() []key.Binding {
	return []key.Binding{
		k.Follow, k.PodNames, k.Timestamps, k.Wrap, k.Dark, k.Previous, k.Tail, k.Since,
		k.Container, k.Highlight, k.Filter, k.Copy, k.Export, k.Pods, k.Quit,
	}
}

// viewportKeys leaves letters free for the viewer's own bindings.
func viewportKeys() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown", " ")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		Up:           key.NewBinding(key.WithKeys("up", "k")),
		Down:         key.NewBinding(key.WithKeys("down", "j")),
	}
}
