// Command formstep validates, walks, fills and serves multi-step forms.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/formstep/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "formstep:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
