package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/dmitrijs2005/classmint/internal/buildinfo"
	"github.com/dmitrijs2005/classmint/internal/server"
	"github.com/dmitrijs2005/classmint/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	if _, err := maxprocs.Set(maxprocs.Logger(log.Printf)); err != nil {
		log.Printf("maxprocs: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}
