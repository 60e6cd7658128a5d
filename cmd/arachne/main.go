// Command arachne explores security protocol models by backward search.
package main

import (
	"os"

	"github.com/roach88/arachne/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(cli.GetExitCode(err))
	}
}
