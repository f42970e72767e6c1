// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command ratesync runs the list synchronization gateway and its maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/taibuivan/ratesync/internal/cli"
	"github.com/taibuivan/ratesync/internal/platform/constants"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = constants.AppVersion

func main() {
	if err := cli.NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
