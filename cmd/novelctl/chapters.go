// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/taibuivan/truyen/pkg/chapterparse"
)

func newChaptersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chapters <file.txt>",
		Short: "List the chapters a TXT file would be imported as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer input.Close()

			table := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(table, "NUMBER\tTITLE\tCHARACTERS")

			count := 0
			for segment, err := range chapterparse.Parse(input) {
				if err != nil {
					return err
				}
				fmt.Fprintf(table, "%d\t%s\t%d\n", segment.Number, segment.Title, utf8.RuneCountInString(segment.Content()))
				count++
			}

			if err := table.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d chapters\n", count)
			return nil
		},
	}
}
