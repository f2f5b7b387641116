// Command filterframes parses DTASelect filter reports from the command line.
//
//	filterframes summary DTASelect-filter.txt
//	filterframes normalize -o clean.txt DTASelect-filter.txt
//	filterframes split -outdir tables/ run1.txt run2.txt
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
