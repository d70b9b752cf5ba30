// Copyright (c) 2026 Truyen. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taibuivan/truyen/internal/core/unlock"
)

type quoteFlags struct {
	chapters       int
	price          int64
	fullStory      bool
	rangeTiers     string
	fullStoryTiers string
}

func newQuoteCommand() *cobra.Command {
	flags := &quoteFlags{}
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a batch unlock of equally priced chapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if flags.chapters < 1 || flags.price < 0 {
				return fmt.Errorf("--chapters must be positive and --price must not be negative")
			}

			rangeTiers, err := unlock.ParseTiers(flags.rangeTiers)
			if err != nil {
				return err
			}
			fullStoryTiers, err := unlock.ParseTiers(flags.fullStoryTiers)
			if err != nil {
				return err
			}
			table, err := unlock.NewTable("cli", rangeTiers, fullStoryTiers)
			if err != nil {
				return err
			}

			quote := table.RangePrice(flags.price, flags.chapters)
			if flags.fullStory {
				quote = table.FullStoryPrice(flags.price, flags.chapters)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d chapters: %d stones (was %d, %s%% off)\n",
				quote.ChapterCount, quote.Total, quote.OriginalTotal, quote.DiscountPercent.String())
			return nil
		},
	}

	cmd.Flags().IntVar(&flags.chapters, "chapters", 0, "number of chapters")
	cmd.Flags().Int64Var(&flags.price, "price", 0, "price of one chapter in spirit stones")
	cmd.Flags().BoolVar(&flags.fullStory, "full", false, "use the full-story tiers")
	cmd.Flags().StringVar(&flags.rangeTiers, "range-tiers", "201:2", "range discount tiers as min:percent pairs")
	cmd.Flags().StringVar(&flags.fullStoryTiers, "full-tiers", "1:10", "full-story discount tiers as min:percent pairs")
	return cmd
}
