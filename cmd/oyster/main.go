package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/PaulSpaurgen/interface-v2/constants"
)

const (
	FlagRepo = "repo"
)

func main() {
	app := &cli.App{
		Name:                 "oyster",
		Usage:                "A client node for the oyster marketplace: lease enclave instances from providers, fund them and revise their rates.",
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    FlagRepo,
				EnvVars: []string{"OYSTER_PATH"},
				Usage:   "oyster repo path",
				Value:   constants.DEFAULT_REPO_PATH,
			},
		},
		Commands: []*cli.Command{
			runCmd,
			marketplaceCmd,
			jobCmd,
			providerCmd,
			walletCmd,
		},
	}
	app.Setup()

	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}
