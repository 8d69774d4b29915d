// Command grsync is an rsync protocol-27 client, server and daemon.
package main

import (
	"context"
	"log"
	"os"

	"github.com/opensync/grsync/internal/maincmd"
	"github.com/opensync/grsync/internal/rsyncos"
)

func main() {
	osenv := rsyncos.Std{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if _, err := maincmd.Main(context.Background(), osenv, os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}
