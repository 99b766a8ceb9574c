package main

import "github.com/715d/pluggability/testdata/vet-plugins/base"

var _ = base.Plugin.MustDerive("BlackSheep", nil)
