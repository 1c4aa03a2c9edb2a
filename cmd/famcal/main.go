package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"famcal/internal/cli"
	"famcal/internal/config"
)

func main() {
	configPath := flag.String("config", cli.DefaultConfigPath(), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "famcal: %v\n", err)
		os.Exit(1)
	}

	app := cli.NewApp(cfg)
	if err := app.Run(context.Background(), flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "famcal: %v\n", err)
		os.Exit(1)
	}
}
