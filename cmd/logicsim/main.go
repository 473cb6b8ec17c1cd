// Command logicsim compiles, simulates and checks CUE logic programs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/logicsim/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
