// Command dittoftp runs and administers the dittoftp FTP server.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/dittoftp/cmd/dittoftp/commands"
)

// Set with -ldflags "-X main.version=..." at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version, commands.Commit, commands.Date = version, commit, date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
