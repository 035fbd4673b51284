package main

import (
	"github.com/dyike/CortexFolio/internal/cli"
)

func main() {
	cli.Run()
}
