// Command ransched runs the scheduler event-dispatch core behind its gRPC
// ingress.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
