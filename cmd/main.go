package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/docmigrate/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "docmigrate",
		Usage:    "Move legacy document data into the relational Core",
		Version:  "0.1.0",
		Flags:    globalFlags(),
		Before:   r.configure,
		Commands: r.register(),
	}
}
