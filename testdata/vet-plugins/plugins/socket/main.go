package main

import "github.com/715d/pluggability/testdata/vet-plugins/base"

// Socket is a derivative that is itself a base.
var Socket = base.Plugin.MustDerive("SocketPlugin", nil).Enable()

var Unix = Socket.MustDerive("UnixSocketPlugin", nil)

func main() {}
