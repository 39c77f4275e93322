// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"log"
	"os"
)

// patched by tests, so that fatal errors do not exit the test binary
var (
	logFatalln = log.Fatalln
	logFatalf  = log.Fatalf
	osExit     = os.Exit
)

// wrapFatalln exits after logging msg, and err when not nil
func wrapFatalln(msg string, err error) {
	if err != nil {
		logFatalf("%s: %v", msg, err)
		return
	}
	logFatalln(msg)
}

// wrapFatalWithCodef prints a formatted message on stderr and exits with code
func wrapFatalWithCodef(code int, format string, args ...interface{}) {
	_, _ = fmt.Fprintln(os.Stderr, fmt.Sprintf(format, args...))
	osExit(code)
}
