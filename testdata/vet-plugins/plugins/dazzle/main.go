package main

import "github.com/715d/pluggability/testdata/vet-plugins/base"

var Dazzle = base.Plugin.MustDerive("DazzlePlugin", nil)

// LoudDazzle is only reachable after something loads dazzle.so.
var LoudDazzle = Dazzle.MustDerive("LoudDazzlePlugin", nil)

func main() {}
