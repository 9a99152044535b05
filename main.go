// smtpc - an interactive client for SMTP servers that speak length-framed
// messages.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"smtpc/cmd"
	ncerr "smtpc/internal/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		// A terminated session has already told the operator why.
		if !errors.Is(err, ncerr.ErrTerminated) {
			fmt.Fprintf(os.Stderr, "smtpc: %v\n", err)
		}
		os.Exit(1)
	}
}
