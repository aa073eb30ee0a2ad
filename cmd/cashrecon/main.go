package main

import (
	"fmt"
	"os"

	"hotcake-cash-recon/cmd/cashrecon/cmd"
	"hotcake-cash-recon/pkg/errors"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type exitCoder interface {
	ExitCode() int
}

func main() {
	// Set version information
	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if re, ok := errors.AsReconError(err); ok {
			os.Exit(re.GetExitCode())
		}
		if ec, ok := err.(exitCoder); ok {
			os.Exit(ec.ExitCode())
		}
		os.Exit(1)
	}
}
