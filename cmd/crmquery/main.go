package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand(newEnvironment(os.Stdout, os.Stderr)).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
