// Command iammetricsd collects IAM events and serves them as Prometheus metrics.
package main

import (
	"github.com/alecthomas/kong"
)

// Global carries state shared by subcommands.
type Global struct{}

// CLI is the command-line definition.
type CLI struct {
	Config    string `short:"c" help:"Configuration file path" default:"iammetricsd.yaml"`
	LogLevel  string `help:"Override logging.level (debug, info, warn, error)" enum:",debug,info,warn,error" default:""`
	LogFormat string `help:"Override logging.format (json, console)" enum:",json,console" default:""`

	Serve    ServeCmd    `cmd:"" default:"1" help:"Serve metrics and consume IAM events"`
	Token    TokenCmd    `cmd:"" help:"Issue a scrape token for the metrics endpoint"`
	Loadtest LoadtestCmd `cmd:"" help:"Record synthetic events concurrently and verify the exported totals"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("iammetricsd"),
		kong.Description("IAM event metrics daemon."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&Global{}, &cli))
}
