package main

import "github.com/715d/pluggability/testdata/vet-plugins/base"

//nolint:pluggability // created by type, never by name
var Glitter = base.Plugin.MustDerive("GlitterPlugin", nil)

var anonymous = base.Plugin.MustDerive("", nil)
