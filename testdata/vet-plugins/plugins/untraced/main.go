package main

import (
	"github.com/715d/pluggability/pkg/pluggability"
	"github.com/715d/pluggability/testdata/vet-plugins/base"
)

func register(b *pluggability.Type) {
	b.MustDerive("TwinklePlugin", nil)
}

func main() {
	register(base.Plugin)
}
