package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/soundprediction/mediagraph/pkg/driver"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 when the graph store cannot be used and 1 for anything else.
func exitCode(err error) int {
	if errors.Is(err, driver.ErrUnauthorized) || errors.Is(err, driver.ErrUnavailable) {
		return 2
	}
	return 1
}
