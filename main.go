// tokenbench counts, compares and prices the tokens in text files.
// Entry point: builds the command tree and runs it.
package main

import (
	"fmt"
	"os"

	"github.com/Manjussha/tokenbench/internal/cli"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := cli.NewRootCommand(cli.NewApp(Version)).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
