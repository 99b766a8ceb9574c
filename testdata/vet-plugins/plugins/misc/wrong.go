package main

import "github.com/715d/pluggability/testdata/vet-plugins/base"

var Shiny = base.Plugin.MustDerive("ShinyPlugin", nil)
