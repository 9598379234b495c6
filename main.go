package main

import (
	"fmt"
	"os"

	"github.com/bsv-blockchain/minichain/cmd/minichain"
)

// Name used by build script for the binaries. (Please keep on single line)
const progname = "minichain"

// Version & commit strings injected at build with -ldflags -X...
var (
	version string
	commit  string
)

func main() {
	if err := minichain.NewApp(progname, version, commit).Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
