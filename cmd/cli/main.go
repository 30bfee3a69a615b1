package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/classmint/internal/client/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := cli.NewRootCommand(app).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
