// Idiomatic entrypoint for Cobra CLI that delegates handling to the Cobra root command in cmd/pimsim/root.go

package main

import (
	"github.com/pimsim/pimsim/cmd/pimsim"
)

func main() {
	pimsim.Execute()
}
