package main

import (
	"fmt"
	"os"

	"execdoc/internal/core/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", errors.Message(err))
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for usage problems such as missing parameters, 1 otherwise.
func exitCode(err error) int {
	if errors.IsCode(err, errors.CodeValidationError) {
		return 2
	}
	return 1
}
