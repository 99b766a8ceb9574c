// Package shared is imported by plugins, so it is never loaded on its own.
package shared

import "github.com/715d/pluggability/testdata/vet-plugins/base"

var Shared = base.Plugin.MustDerive("SharedPlugin", nil)
