// Command sniper is the engine's process entrypoint: it loads the
// engine-wide TOML config, registers every profile fragment named on
// the command line, and runs the Simulator/Trader Routers and Executor
// until interrupted (SPEC_FULL §0 CLI, grounded on the teacher's own
// `gopkg.in/urfave/cli.v1`-driven cmd/geth entrypoint).
package main

import (
	"context"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/urfave/cli.v1"

	"github.com/szkkteam/go-sniper/config"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the engine's TOML configuration file",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "data directory for the embedded chain node",
		Value: "./gosniper-data",
	}
	dryRunFlag = cli.BoolFlag{
		Name:  "dry-run",
		Usage: "wire the Executor to a logging relay stub instead of live relays",
	}
	profileFlag = cli.StringSliceFlag{
		Name:  "profile",
		Usage: "path to a per-trader profile TOML fragment; may be repeated",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "sniper"
	app.Usage = "mempool-reactive token sniper engine"
	app.Flags = []cli.Flag{configFlag, dataDirFlag, dryRunFlag, profileFlag}
	app.Action = mainAction

	if err := app.Run(os.Args); err != nil {
		log.Crit("sniper: fatal", "err", err)
	}
}

func mainAction(c *cli.Context) error {
	configPath := c.String(configFlag.Name)
	if configPath == "" {
		return cli.NewExitError("sniper: --config is required", 1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	var profilePaths []string
	if slice := c.StringSlice(profileFlag.Name); len(slice) > 0 {
		profilePaths = slice
	}

	ctx := context.Background()
	if err := run(ctx, cfg, c.String(dataDirFlag.Name), c.Bool(dryRunFlag.Name), profilePaths); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	return nil
}
