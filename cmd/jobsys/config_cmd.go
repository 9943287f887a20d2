package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Swind/go-job-system/config"
)

func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:   "config",
		Usage:  "Print the effective configuration as YAML",
		Action: configAction,
	}
}

func configAction(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	out, err := config.Marshal(cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed: %v", err), 1)
	}
	_, err = c.App.Writer.Write(out)
	return err
}
