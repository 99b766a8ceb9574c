// Package base declares the base type the plugins below derive from.
package base

import "github.com/715d/pluggability/pkg/pluggability"

// Plugin is the pluggable base.
var Plugin = pluggability.NewBase("Plugin", nil)

// Builtin is registered whenever this package is imported.
var Builtin = Plugin.MustDerive("BuiltinPlugin", nil)
