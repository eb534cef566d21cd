// Command cloudrec converts locally persisted objects into cloud database
// records.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/cloudrec/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cloudrec:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
