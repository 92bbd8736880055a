// isoflow fits the isotope paleothermometry stages.
//
// Usage:
//
//	isoflow run Q1 Q2 Q3_A [--config isoflow.yaml] [--engine native]
//	isoflow run all
//	isoflow stages
//	isoflow show Q3_A bivalve
//	isoflow model Q4_B
package main

import (
	"fmt"
	"os"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
