// Command catalog edits and inspects a revisioned book catalog.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/catalog/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
