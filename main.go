// TinyTelnet - a remote command server for telnet clients and serial
// links.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tinytelnet/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tinytelnet: %v\n", err)
		os.Exit(1)
	}
}
