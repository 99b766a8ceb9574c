package vet

import "go/token"

// Finding is a derivative declared where no on-demand load will look for it.
type Finding struct {
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	PluginName string         `json:"plugin_name"`
	Position   token.Position `json:"position"`
	Expected   []string       `json:"expected"`
	Reason     string         `json:"reason"`
	Suppressed bool           `json:"suppressed"`
	Package    string         `json:"package"`
}
