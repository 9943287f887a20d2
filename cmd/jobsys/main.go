// Command jobsys runs the job scheduler against a synthetic workload and
// prints the effective configuration.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "jobsys",
		Usage: "In-process priority job scheduler",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML or JSON config file",
				EnvVars: []string{"JOBSYS_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			RunCommand(),
			ConfigCommand(),
		},
	}
}
