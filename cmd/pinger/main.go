// pinger generates background HTTP traffic for APM demo stacks.
package main

import (
	"os"

	"github.com/Popie52/pinger/internal/cli"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	cli.Version, cli.Commit, cli.BuildDate = Version, Commit, BuildDate
	os.Exit(cli.Execute())
}
