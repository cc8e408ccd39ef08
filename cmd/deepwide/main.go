package main

import (
	"fmt"
	"os"

	"github.com/go-go-golems/deepwide/cmd/deepwide/cmds"
)

func main() {
	if err := cmds.NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
