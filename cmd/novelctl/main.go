// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command novelctl runs the text tools offline: formatting TXT files,
// listing the chapters a file would import as, quoting unlock prices and
// minting development access tokens.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "novelctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "novelctl",
		Short:         "Offline tools for web-novel TXT files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newFormatCommand(),
		newChaptersCommand(),
		newQuoteCommand(),
		newTokenCommand(),
	)
	return cmd
}
